package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/five82/liststore/internal/listing"
	"github.com/five82/liststore/internal/loop"
	"github.com/five82/liststore/internal/state"
	"github.com/five82/liststore/internal/store"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func newDirProducer(t *testing.T, root string) (*listing.Producer, *store.Store, *loop.Queue, *state.Store) {
	t.Helper()
	src := listing.NewDirSource(root, false, nil)
	q := loop.NewQueue()
	st, err := store.New(store.Options{Loop: q, Callbacks: listing.Callbacks(src)})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(st.Close)
	progress := &state.Store{}
	p := &listing.Producer{Source: src, Store: st, Loop: q, Progress: progress}
	return p, st, q, progress
}

func TestRunProducer_GivesUpAfterAttempts(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	p, _, _, progress := newDirProducer(t, missing)

	err := runProducer(context.Background(), p, progress, zap.NewNop(), retryPolicy{base: time.Millisecond, attempts: 3})
	if err != nil {
		t.Fatalf("runProducer() error = %v, want nil", err)
	}

	snap := progress.Snapshot()
	if snap.ConsecutiveFailures != 3 {
		t.Fatalf("ConsecutiveFailures = %d, want 3", snap.ConsecutiveFailures)
	}
	if snap.LastError == nil || !strings.Contains(snap.LastError.Error(), "read dir") {
		t.Fatalf("LastError = %v, want read dir failure", snap.LastError)
	}
	if !snap.IsFailing() {
		t.Fatalf("IsFailing() = false, want true")
	}
}

func TestRunProducer_FillsStore(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p, st, q, progress := newDirProducer(t, root)

	if err := runProducer(context.Background(), p, progress, zap.NewNop(), retryPolicy{}); err != nil {
		t.Fatalf("runProducer() error = %v", err)
	}
	q.Drain()

	// Two headers plus three entries.
	if got := st.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	snap := progress.Snapshot()
	if !snap.Progress.Done || snap.Progress.Listed != 3 {
		t.Fatalf("progress = %+v, want done with 3 listed", snap.Progress)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}
}

func TestRunProducer_StopsOnCancel(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	p, _, _, progress := newDirProducer(t, missing)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runProducer(ctx, p, progress, zap.NewNop(), retryPolicy{base: time.Hour, attempts: 10})
	}()
	deadline := time.Now().Add(2 * time.Second)
	for progress.Snapshot().ConsecutiveFailures == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first attempt never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runProducer() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runProducer did not stop after cancel")
	}
}
