// Package loop provides the job queue that confines store mutations to a single
// goroutine.
//
// # Overview
//
// The store expects every structural change (adds, deletes, realize evaluation,
// refresh hand-off) to run on one logical "UI" goroutine. Background goroutines
// such as fetch workers and the listing producer never touch the store directly;
// they Post a closure to a Queue and the owner of the loop runs it later with
// Drain.
//
// # Usage
//
//	q := loop.NewQueue()
//	go func() { q.Post(func() { store.Add(d) }) }()
//
//	for range q.Ready() {
//		q.Drain()
//	}
//
// Post never blocks, so a worker can hand work back even while the loop
// goroutine is itself waiting for that worker (store teardown joins its
// workers from inside a loop job).
//
// In the TUI the Ready channel is turned into a Bubble Tea command so queued
// jobs run inside Model.Update. Tests call Drain directly.
package loop
