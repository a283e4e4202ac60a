package store

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchThread_CommitsAndRefreshesOnLoop(t *testing.T) {
	h := newHarness(t, Config{CacheMax: 2, FetchThread: true})
	a := h.s.Add(item("a", NoGroup, 1))

	h.realize(a)
	h.waitFor("refresh posted", func() bool { return h.view.count("refresh a") == 1 })

	payload, _ := h.s.Payload(a)
	assert.Equal(t, "payload:a", payload)
	assert.True(t, h.s.Fetched(a))
}

func TestFetchThread_HeadersFetchedOnAdd(t *testing.T) {
	h := newHarness(t, Config{FetchThread: true})
	g := h.s.Add(header("g", 0))

	h.waitFor("header fetched", func() bool { return h.s.Fetched(g) })
	assert.Equal(t, 1, h.s.Stats().AlwaysFetched)
}

// Scenario D: closing with a worker still running.
func TestClose_WaitsForInFlightWorker(t *testing.T) {
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{FetchThread: true}, withFetch(func(ctx context.Context, d *testDesc) any {
		started <- struct{}{}
		<-ctx.Done()
		return "late:" + d.name
	}))
	a := h.s.Add(item("a", NoGroup, 1))
	h.realize(a)
	<-started

	h.s.Close()

	assert.Equal(t, 1, h.rec.count(h.rec.unfetches, "a"), "late payload is released")
	assert.Equal(t, 1, h.rec.count(h.rec.frees, "a"))
	h.rec.mu.Lock()
	assert.Equal(t, []any{"late:a"}, h.rec.released)
	h.rec.mu.Unlock()
	assert.Zero(t, h.s.Len())
}

func cancelledFetch(started chan<- struct{}) func(ctx context.Context, d *testDesc) any {
	return func(ctx context.Context, d *testDesc) any {
		started <- struct{}{}
		<-ctx.Done()
		return "stale:" + d.name
	}
}

func TestStaleCommit_KeepsCancelledResult(t *testing.T) {
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{FetchThread: true, StalePolicy: StaleCommit}, withFetch(cancelledFetch(started)))
	a := h.s.Add(item("a", NoGroup, 1))
	h.realize(a)
	<-started

	h.unrealize(a)

	h.waitFor("stale commit", func() bool { return h.s.Fetched(a) })
	payload, _ := h.s.Payload(a)
	assert.Equal(t, "stale:a", payload)
	assert.Zero(t, h.rec.total(h.rec.unfetches))
}

func TestStaleDrop_ReleasesCancelledResult(t *testing.T) {
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{FetchThread: true, StalePolicy: StaleDrop}, withFetch(cancelledFetch(started)))
	a := h.s.Add(item("a", NoGroup, 1))
	h.realize(a)
	<-started

	h.unrealize(a)

	h.waitFor("stale release", func() bool { return h.rec.count(h.rec.unfetches, "a") == 1 })
	assert.False(t, h.s.Fetched(a))
	h.assertCoupling()
}

func TestFetchThread_EvictedWhileInFlightNeverCommits(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{CacheMax: 1, FetchThread: true}, withFetch(func(_ context.Context, d *testDesc) any {
		if d.name == "a" {
			started <- struct{}{}
			<-gate
		}
		return "payload:" + d.name
	}))
	a := h.s.Add(item("a", NoGroup, 1))
	b := h.s.Add(item("b", NoGroup, 2))
	h.realize(a)
	<-started

	h.realize(b)
	close(gate)

	h.waitFor("late result released", func() bool { return h.rec.count(h.rec.unfetches, "a") == 1 })
	h.waitFor("b fetched", func() bool { return h.s.Fetched(b) })

	assert.False(t, h.s.Fetched(a))
	assert.Equal(t, []Handle{b}, h.s.Realized())
	h.assertCoupling()
}

func TestFetchThread_RestartsAfterCancelledFailure(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{CacheMax: 2, FetchThread: true}, withFetch(func(ctx context.Context, d *testDesc) any {
		if calls.Add(1) == 1 {
			started <- struct{}{}
			<-ctx.Done()
			return nil
		}
		return "ok"
	}))
	a := h.s.Add(item("a", NoGroup, 1))
	h.realize(a)
	<-started

	h.unrealize(a)
	h.realize(a)

	h.waitFor("refetch", func() bool { return h.s.Fetched(a) })
	require.Equal(t, int32(2), calls.Load())
	payload, _ := h.s.Payload(a)
	assert.Equal(t, "ok", payload)
}

func TestUpdate_InvalidatesInFlightWorker(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{CacheMax: 2, FetchThread: true}, withFetch(func(_ context.Context, d *testDesc) any {
		n := calls.Add(1)
		if n == 1 {
			started <- struct{}{}
			<-gate
			return "old"
		}
		return "new"
	}))
	a := h.s.Add(item("a", NoGroup, 1))
	h.realize(a)
	<-started

	h.s.Update(a)
	h.q.Drain()
	close(gate)

	h.waitFor("old result released", func() bool { return h.rec.count(h.rec.unfetches, "a") == 1 })
	h.waitFor("new payload", func() bool {
		p, ok := h.s.Payload(a)
		return ok && p == "new"
	})
	h.rec.mu.Lock()
	assert.Equal(t, []any{"old"}, h.rec.released)
	h.rec.mu.Unlock()
}

func TestFetchThread_HeaderKeepsFetchWhenScrolledPast(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{FetchThread: true}, withFetch(func(ctx context.Context, d *testDesc) any {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			return nil
		case <-gate:
			return "payload:" + d.name
		}
	}))
	g := h.s.Add(header("g", 0))
	<-started

	h.realize(g)
	h.unrealize(g)
	close(gate)

	h.waitFor("header fetched", func() bool { return h.s.Fetched(g) })
	h.waitFor("worker settled", func() bool { return h.s.Stats().InFlight == 0 })
	assert.Equal(t, 1, h.rec.count(h.rec.fetches, "g"))
	assert.True(t, h.s.Fetched(g))
}

func TestUpdate_HeaderWithFetchInFlight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{FetchThread: true}, withFetch(func(ctx context.Context, d *testDesc) any {
		if calls.Add(1) == 1 {
			started <- struct{}{}
			<-ctx.Done()
			return nil
		}
		return "fresh:" + d.name
	}))
	g := h.s.Add(header("g", 0))
	<-started

	h.s.Update(g)

	h.waitFor("header refetched", func() bool { return h.s.Fetched(g) })
	payload, _ := h.s.Payload(g)
	assert.Equal(t, "fresh:g", payload)
	assert.Equal(t, int32(2), calls.Load())
	h.waitFor("worker settled", func() bool { return h.s.Stats().InFlight == 0 })
}

func TestDelete_InFlightFreesAfterUnfetch(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	h := newHarness(t, Config{CacheMax: 2, FetchThread: true}, withFetch(func(_ context.Context, d *testDesc) any {
		started <- struct{}{}
		<-gate
		return "late:" + d.name
	}))
	a := h.s.Add(item("a", NoGroup, 1))
	h.realize(a)
	<-started

	h.s.Delete(a)
	assert.Zero(t, h.rec.count(h.rec.frees, "a"), "descriptor freed while the worker holds it")
	close(gate)

	h.waitFor("descriptor freed", func() bool { return h.rec.count(h.rec.frees, "a") == 1 })
	assert.Equal(t, []string{"unfetch a", "free a"}, h.rec.calls())
	assert.Zero(t, h.s.Len())
}

func TestReplacedDescriptor_InFlightFreedAfterUnfetch(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		swap func(h *harness, a Handle)
		next string
	}{
		{
			name: "tie replace",
			cfg:  Config{CacheMax: 2, FetchThread: true, TiePolicy: TieReplace},
			swap: func(h *harness, _ Handle) { h.s.Add(item("a2", NoGroup, 1)) },
			next: "a2",
		},
		{
			name: "set descriptor",
			cfg:  Config{CacheMax: 2, FetchThread: true},
			swap: func(h *harness, a Handle) { h.s.SetDescriptor(a, item("b", NoGroup, 2)) },
			next: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := make(chan struct{})
			started := make(chan struct{}, 1)
			h := newHarness(t, tt.cfg, withFetch(func(_ context.Context, d *testDesc) any {
				if d.name == "a" {
					started <- struct{}{}
					<-gate
				}
				return "payload:" + d.name
			}))
			a := h.s.Add(item("a", NoGroup, 1))
			h.realize(a)
			<-started

			tt.swap(h, a)
			h.q.Drain()
			assert.Zero(t, h.rec.count(h.rec.frees, "a"), "old descriptor freed while the worker holds it")
			close(gate)

			h.waitFor("new payload", func() bool {
				p, ok := h.s.Payload(a)
				return ok && p == "payload:"+tt.next
			})
			h.waitFor("old descriptor freed", func() bool { return h.rec.count(h.rec.frees, "a") == 1 })
			assert.Equal(t, []string{"unfetch a", "free a"}, h.rec.calls())
			h.assertCoupling()
		})
	}
}
