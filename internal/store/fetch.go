package store

import (
	"context"

	"go.uber.org/zap"
)

// fetch materializes the payload of it. It does nothing when the item already
// holds a payload or a worker is in flight, which keeps at most one worker per
// item.
func (s *Store) fetch(it *Item) {
	it.mu.Lock()
	if it.fetched || it.cancel != nil || it.dead {
		it.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	it.cancel = cancel
	it.done = done
	epoch := it.epoch
	desc := it.desc
	it.mu.Unlock()

	if !s.cfg.FetchThread {
		s.runFetch(ctx, it, desc, epoch, done)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runFetch(ctx, it, desc, epoch, done)
	}()
}

// runFetch executes the Fetch callback outside any lock and commits the
// result. On a worker goroutine the refresh is handed back to the loop.
func (s *Store) runFetch(ctx context.Context, it *Item, desc Descriptor, epoch uint64, done chan struct{}) {
	payload := s.cb.Fetch(ctx, desc)
	stale := ctx.Err() != nil

	committed := false
	it.mu.Lock()
	switch {
	case payload == nil:
	case it.dead, it.epoch != epoch, it.fetched:
	case stale && s.cfg.StalePolicy == StaleDrop:
	default:
		it.payload = payload
		it.fetched = true
		committed = true
	}
	it.mu.Unlock()

	if payload != nil && !committed {
		s.release(desc, payload)
	}

	// The worker stays registered until its result is released, so a
	// descriptor retired meanwhile reaches Free only after Unfetch.
	it.mu.Lock()
	cancelled := ctx.Err() != nil
	if it.done == done {
		it.cancel()
		it.cancel = nil
		it.done = nil
	}
	retired := it.retired
	it.retired = nil
	it.mu.Unlock()
	close(done)

	for _, d := range retired {
		s.free(d)
	}
	if cancelled {
		s.log.Debug("fetch cancelled",
			zap.Stringer("item", it.handle),
			zap.Bool("committed", committed))
	}

	h := it.handle
	if s.cfg.FetchThread {
		s.loop.Post(func() { s.fetched(h, cancelled) })
		return
	}
	s.fetched(h, cancelled)
}

// fetched runs on the loop once a fetch settles. A cancelled worker that left
// a wanted item empty is restarted, since a new fetch could not start while it
// was still running. Headers are always wanted.
func (s *Store) fetched(h Handle, cancelled bool) {
	if !s.live {
		return
	}
	it := s.items.get(h)
	if it == nil {
		return
	}
	if cancelled && (it.always || (it.live && it.realized != nil)) {
		if _, ok := it.snapshot(); !ok {
			s.fetch(it)
		}
	}
	s.view.Refresh(h)
}

// unfetch releases the payload of it, cancelling any worker first. It reports
// whether a payload was released.
func (s *Store) unfetch(it *Item) bool {
	payload, had := it.takePayload()
	if !had {
		return false
	}
	s.release(it.desc, payload)
	return true
}

// cancelFetch signals the worker of an item that left the viewport. The
// payload, if the worker still produces one, is handled by the stale policy.
func (s *Store) cancelFetch(it *Item) {
	if it.cancelWorker() {
		s.log.Debug("fetch cancel requested", zap.Stringer("item", it.handle))
	}
}
