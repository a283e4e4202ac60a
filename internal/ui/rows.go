package ui

import "github.com/five82/liststore/internal/store"

// rowWindow is the list widget seen from the store. It implements store.View,
// keeps the cursor on the same row across inserts and removals, and reports
// rows entering and leaving the window with NotifyRealized and
// NotifyUnrealized.
//
// Like the store, it is only touched from the Bubble Tea event loop.
type rowWindow struct {
	st      *store.Store
	rows    []store.Handle
	dirty   bool
	cursor  int
	anchor  store.Handle
	top     int
	height  int
	visible map[store.Handle]struct{}
}

func newRowWindow(st *store.Store) *rowWindow {
	return &rowWindow{
		st:      st,
		dirty:   true,
		height:  1,
		visible: make(map[store.Handle]struct{}),
	}
}

func (w *rowWindow) InsertBefore(row, anchor store.Handle) { w.dirty = true }
func (w *rowWindow) InsertAfter(row, anchor store.Handle)  { w.dirty = true }
func (w *rowWindow) Append(row store.Handle)               { w.dirty = true }

// Refresh needs no bookkeeping; rows are rendered straight from the store on
// every frame.
func (w *rowWindow) Refresh(row store.Handle) {}

func (w *rowWindow) Remove(row store.Handle) {
	w.dirty = true
	delete(w.visible, row)
}

// sync reloads display order if the store changed shape, re-anchors the
// cursor, scrolls it into view and reports visibility changes.
func (w *rowWindow) sync() {
	if w.dirty {
		w.rows = w.st.Handles()
		w.dirty = false
		if i := w.index(w.anchor); i >= 0 {
			w.cursor = i
		}
	}
	w.clamp()
	w.scroll()
	w.notify()
}

func (w *rowWindow) index(h store.Handle) int {
	if !h.Valid() {
		return -1
	}
	for i, r := range w.rows {
		if r == h {
			return i
		}
	}
	return -1
}

func (w *rowWindow) clamp() {
	if w.cursor >= len(w.rows) {
		w.cursor = len(w.rows) - 1
	}
	if w.cursor < 0 {
		w.cursor = 0
	}
	w.anchor = store.Handle{}
	if len(w.rows) > 0 {
		w.anchor = w.rows[w.cursor]
	}
}

func (w *rowWindow) scroll() {
	if w.cursor < w.top {
		w.top = w.cursor
	}
	if w.cursor >= w.top+w.height {
		w.top = w.cursor - w.height + 1
	}
	if limit := len(w.rows) - w.height; w.top > limit {
		w.top = limit
	}
	if w.top < 0 {
		w.top = 0
	}
}

// notify realizes newly visible rows top to bottom, so the row nearest the
// bottom edge is the newest member of the realized set.
func (w *rowWindow) notify() {
	next := make(map[store.Handle]struct{}, w.height)
	for _, h := range w.window() {
		next[h] = struct{}{}
		if _, ok := w.visible[h]; !ok {
			w.st.NotifyRealized(h)
		}
	}
	for h := range w.visible {
		if _, ok := next[h]; !ok {
			w.st.NotifyUnrealized(h)
		}
	}
	w.visible = next
}

// window returns the rows currently on screen.
func (w *rowWindow) window() []store.Handle {
	end := w.top + w.height
	if end > len(w.rows) {
		end = len(w.rows)
	}
	if w.top >= end {
		return nil
	}
	return w.rows[w.top:end]
}

func (w *rowWindow) setHeight(n int) {
	if n < 1 {
		n = 1
	}
	w.height = n
	w.sync()
}

func (w *rowWindow) move(delta int) {
	w.cursor += delta
	w.sync()
}

func (w *rowWindow) home() {
	w.cursor = 0
	w.sync()
}

func (w *rowWindow) end() {
	w.cursor = len(w.rows) - 1
	w.sync()
}

// selected returns the handle under the cursor, or the zero Handle when the
// list is empty.
func (w *rowWindow) selected() store.Handle {
	return w.anchor
}

func (w *rowWindow) count() int {
	return len(w.rows)
}
