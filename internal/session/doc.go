// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties the conversation store, the settings store and the
// streaming client together into the prompt/reply cycle, and owns
// persistence of the result.
//
// # Flow
//
// Submit appends the user message to the active conversation, appends an
// empty assistant placeholder, opens a chat stream with the current
// settings and appends each text increment to the placeholder as it
// arrives.
//
// # Usage
//
//	mgr := session.NewManager(session.Deps{...}, session.DefaultConfig())
//	if err := mgr.Load(ctx); err != nil {
//	    return err
//	}
//	mgr.Start(ctx)
//	defer mgr.Close(context.Background())
//
//	reply, err := mgr.Submit(ctx, "Hello", ollama.Handlers{OnChunk: print})
package session
