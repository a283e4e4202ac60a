// Package app provides the orchestration layer for liststore.
//
// # Overview
//
// This package wires together configuration, logging, the listing source, the
// item store, the listing producer and the UI. It is the composition root
// where every dependency is initialized and connected.
//
// # Architecture
//
//  1. Load ~/.config/liststore/config.toml, then saved preferences, then
//     command-line overrides, and validate the result
//  2. Build the zap logger writing to the configured log file
//  3. Open the configured listing source (directory or MySQL table)
//  4. Create the loop queue and the store, wiring the source's callbacks
//  5. Run the producer and the TUI under one errgroup
//  6. Close the store once both have returned
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> resolveConfig()     File, prefs, overrides
//	       ├─────> logging.New()       zap logger
//	       ├─────> listing.Open()      Directory or database source
//	       ├─────> store.New()         Item store on the loop queue
//	       ├─────> runProducer()       Listing with retries (goroutine)
//	       └─────> ui.Run()            Bubble Tea program (goroutine)
//
//	Producer goroutine:
//	┌─────────────────────────────────────────┐
//	│ runProducer()                           │
//	│  ├─> Producer.Run()  posts Add batches  │
//	│  ├─> state.Store.Update() on failure    │
//	│  └─> backoff, retry                     │
//	└─────────────────────────────────────────┘
//
// # Retry Behavior
//
// A failed listing pass is retried after base·2^failures (2s base, capped at
// 30s), five attempts in total. Descriptors from a failed pass stay in the
// store; the retry's duplicates are rejected by the skip tie policy or
// replaced in place under the replace policy. Exhausting the attempts leaves
// the UI running with the error on the status bar.
//
// # Shutdown
//
// Quitting the UI cancels the producer. Cancelling the context ends both.
// The store is closed from Run after the UI loop has exited, so no goroutine
// drains the queue concurrently with Close.
package app
