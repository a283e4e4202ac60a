// Package state shares listing progress between the producer goroutine and
// the UI.
//
// # Overview
//
// The listing producer runs on its own goroutine and cannot touch the item
// store directly, so it records how far it got here. The UI reads a Snapshot
// on every status tick.
//
//	Producer:                      UI:
//	┌────────────────┐            ┌─────────────────┐
//	│ list a batch   │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	│      ↓         │  (mutex)   │      ↓          │
//	│  next batch    │            │  status bar     │
//	└────────────────┘            └─────────────────┘
//
// # Update Semantics
//
//	// Success: replace the progress
//	store.Update(&progress, nil)
//
//	// Failure: keep the last progress, record the error
//	store.Update(nil, err)
//
// ConsecutiveFailures counts failed listing attempts since the last success;
// IsFailing turns true after two, which the status bar shows as an error
// rather than a retry notice.
//
// # Copy Semantics
//
// Update and Snapshot copy the Groups slice and Snapshot wraps the stored
// error, so neither side can mutate what the other sees.
//
// The zero Store is ready to use.
package state
