// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the streaming HTTP client for the Ollama API.
//
// Both generation endpoints answer with newline-delimited JSON. The client
// frames the body into lines (LineFramer), decodes each line on its own and
// hands out the text increments either by pull (Stream.Next) or by push
// (Handlers passed to GenerateStream / ChatStream).
//
// # Key Types
//
//   - Client: endpoint holder; opens streams, lists models, probes liveness
//   - Stream: pull iterator over one response
//   - Handlers: OnStart / OnChunk callbacks for the push style
//   - RequestOptions, GenerationOptions: optional request fields, omitted
//     from the body when unset
//   - ClientError: TransportError / StreamDecodeError taxonomy
//
// # Usage
//
//	client := ollama.NewClient("http://localhost:11434")
//	err := client.ChatStream(ctx, history, "llama3.2", ollama.Handlers{
//	    OnStart: func() { spinner.Stop() },
//	    OnChunk: func(text string) { fmt.Print(text) },
//	}, &ollama.RequestOptions{
//	    SystemPrompt: "Be brief.",
//	    Options:      ollama.NewGenerationOptions(0.7, 2048),
//	})
//	if ollama.IsTransport(err) {
//	    // server down or rejected the request
//	}
package ollama
