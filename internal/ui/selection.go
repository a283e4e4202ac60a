package ui

import (
	"sync"
	"time"

	"github.com/five82/liststore/internal/store"
)

// Selection remembers the row most recently chosen with enter. The store's
// Select callback writes it; the detail line reads it.
type Selection struct {
	mu sync.Mutex
	h  store.Handle
	at time.Time
}

// Set records h as the current selection.
func (s *Selection) Set(h store.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
	s.at = time.Now()
}

// Get returns the selected handle and when it was chosen.
func (s *Selection) Get() (store.Handle, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h, s.at
}
