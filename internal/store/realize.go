package store

import "go.uber.org/zap"

// NotifyRealized records that the view made h visible.
func (s *Store) NotifyRealized(h Handle) {
	s.notify(h, true)
}

// NotifyUnrealized records that the view scrolled h out of sight.
func (s *Store) NotifyUnrealized(h Handle) {
	s.notify(h, false)
}

func (s *Store) notify(h Handle, live bool) {
	if !s.live {
		return
	}
	it := s.items.get(h)
	if it == nil {
		return
	}
	it.live = live
	if it.live == it.wasLive {
		return
	}
	s.schedule(it)
}

// schedule posts one evaluation job per item. Realize and unrealize signals
// arriving before the job runs only move it.live; the job acts on the net
// change.
func (s *Store) schedule(it *Item) {
	if it.pending {
		return
	}
	it.pending = true
	h := it.handle
	s.loop.Post(func() { s.evaluate(h) })
}

func (s *Store) evaluate(h Handle) {
	it := s.items.get(h)
	if it == nil {
		return
	}
	it.pending = false
	if !s.live || it.wasLive == it.live {
		return
	}
	it.wasLive = it.live
	if it.live {
		s.realize(it)
		return
	}
	// Headers stay fetched regardless of visibility.
	if it.always {
		return
	}
	// Leaving the viewport keeps the payload cached until the bound forces
	// an eviction; only an in-flight fetch is abandoned.
	s.cancelFetch(it)
}

func (s *Store) realize(it *Item) {
	if it.always {
		s.fetch(it)
		return
	}
	if it.realized != nil {
		s.realized.MoveToFront(it.realized)
	} else {
		for s.realized.Len() >= s.cacheMax {
			s.evictOldest()
		}
		it.realized = s.realized.PushFront(it)
	}
	s.fetch(it)
}

// evictOldest drops the member realized longest ago, approximating the item
// farthest from the current viewport.
func (s *Store) evictOldest() {
	el := s.realized.Back()
	if el == nil {
		return
	}
	s.evict(el.Value.(*Item))
}

func (s *Store) evict(it *Item) {
	s.realized.Remove(it.realized)
	it.realized = nil
	released := s.unfetch(it)
	s.log.Debug("evicted",
		zap.Stringer("item", it.handle),
		zap.Bool("released", released),
		zap.Int("cache_max", s.cacheMax))
	s.view.Refresh(it.handle)
}
