// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides OpenTelemetry setup and local usage tracking.
//
// Setup installs tracer and meter providers whose exporters write JSON to
// rotated files, so the spans and instruments recorded by the streaming
// client can be inspected offline.
//
// # Key Types
//
//   - UsageTracker: per-run stream statistics (chunks, characters, timing)
//   - SessionUsage: aggregated usage of one run, persisted on exit
//   - UsageStorage: one JSON file per finished run
//
// # Usage
//
//	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
// # Privacy
//
// Usage tracking is local-only and does not transmit any data. Only the
// first 100 characters of each prompt are kept.
package telemetry
