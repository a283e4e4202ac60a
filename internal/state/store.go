package state

import (
	"fmt"
	"sync"
	"time"
)

// Progress describes how far the listing producer got.
type Progress struct {
	Source   string
	Listed   int
	Rejected int
	Batches  int
	// Groups holds header titles in the order they were listed.
	Groups  []string
	Done    bool
	Attempt int
	Started time.Time
}

// Snapshot represents the latest listing progress available to the UI.
type Snapshot struct {
	Progress            Progress
	HasProgress         bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsFailing reports whether the listing failed on consecutive attempts.
func (s Snapshot) IsFailing() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored progress. When err is non-nil the previous
// progress is kept but the error is recorded for visibility.
func (s *Store) Update(progress *Progress, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	if progress != nil {
		s.snapshot.Progress = cloneProgress(*progress)
		s.snapshot.HasProgress = true
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Progress = cloneProgress(s.snapshot.Progress)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneProgress(p Progress) Progress {
	if len(p.Groups) == 0 {
		p.Groups = nil
		return p
	}
	groups := make([]string, len(p.Groups))
	copy(groups, p.Groups)
	p.Groups = groups
	return p
}
