// Package ui provides the terminal list view for liststore.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Its event loop doubles as the store's loop:
// fetch workers and the listing producer post jobs to a loop.Queue, a command
// blocked on the queue's Ready channel turns each wake-up into a message, and
// Update drains the queue. Every store call therefore happens on the Bubble
// Tea goroutine, which is the only goroutine allowed to touch the store.
//
// # Package Structure
//
//   - ui.go: Model, Update/View, messages, commands and Run
//   - rows.go: rowWindow, the store.View implementation and viewport tracker
//   - render.go: row and log line formatting
//   - status.go: listing progress and cache occupancy bar
//   - logs.go: log pane fed by logtail
//   - keys.go, help.go: key bindings and the help overlay
//   - theme.go: color palettes
//   - selection.go: the selected row, written by the store's Select callback
//
// # Virtualization
//
// Only the rows inside the window are reported as realized. Scrolling reports
// rows entering the window with NotifyRealized and rows leaving it with
// NotifyUnrealized; the store decides what to fetch and what to evict. Rows
// without a payload render a placeholder until their fetch lands.
//
// The cursor follows its row rather than its index, so inserts above it and
// removals elsewhere do not move the selection.
//
// # Key Bindings
//
//	j/k, up/down   Move
//	pgup/pgdown    Page
//	g/G            Top/bottom
//	enter          Select row
//	u              Refetch row
//	d              Delete row
//	+/-            Grow/shrink the cache bound (persisted)
//	l              Toggle log pane
//	T              Cycle theme (persisted)
//	?              Help
//	q, ctrl+c      Quit
package ui
