// Package store implements the virtualized, cache-bounded item store behind
// the list view.
//
// # Overview
//
// A Store holds every row of a potentially huge listing but materializes
// ("fetches") the expensive display payload only for rows the view reports as
// visible. Materialized rows live in a bounded realized set; when it is full,
// the row realized longest ago is released ("unfetched"). Group headers are
// fetched on creation and never evicted.
//
// # Architecture
//
//	listing producer ──Post──> loop ──> Store.Add ──> sorted group insertion
//	                                                        │
//	                                                        └─> View.Insert*/Append
//
//	View ──NotifyRealized/NotifyUnrealized──> debounced evaluation (one job per item)
//	                                                        │
//	                            evict oldest ◄──────────────┤
//	                                                        └─> fetch worker
//	                                                              │ Fetch callback
//	                                                              │ commit under Item lock
//	                                                              └─Post──> View.Refresh
//
// # Concurrency Model
//
// Structural state (display order, group bounds, realized and always-fetched
// membership, per-item flags) is owned by one loop goroutine. Every exported
// method except New must be called from it. Background goroutines reach the
// store only through the Dispatcher passed to New.
//
// Fetch workers share exactly two fields with the loop, an item's payload and
// its fetched flag, both guarded by the item's mutex. Callbacks never run
// while that mutex is held.
//
// # Cancellation
//
// A row leaving the viewport cancels its in-flight fetch, but cancellation is
// best effort: a Fetch that completes anyway still commits under StaleCommit
// and is released under StaleDrop. A result whose item was unfetched, evicted,
// deleted or torn down while the worker ran is always released through
// Callbacks.Unfetch and never committed.
//
// # Handles
//
// Items are addressed by generation-checked Handles into an arena, so a Handle
// kept past Delete or Close is ignored rather than misdirected.
//
// # Error Handling
//
// Item operations never fail loudly. Stale handles, a closed store and
// duplicate headers are ignored; a failed Fetch (nil payload) leaves the row
// empty until it is realized again.
package store
