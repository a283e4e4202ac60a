package store

import "go.uber.org/zap"

// spot is where an item goes: ahead of before, behind after, or at the tail
// when both are nil. dup is set when the comparator reported Same against an
// existing item.
type spot struct {
	parent *Item
	before *Item
	after  *Item
	dup    *Item
}

func (s *Store) addHeader(d Descriptor) Handle {
	if h, ok := s.headers[d.Group()]; ok {
		s.free(d)
		return h
	}
	it := newItem(d)
	s.items.alloc(it)
	it.always = true
	s.always[it.handle] = struct{}{}
	s.headers[d.Group()] = it.handle

	s.place(it, s.locateTopLevel(d, false))
	s.fetch(it)
	return it.handle
}

func (s *Store) addItem(d Descriptor) Handle {
	sp := s.locate(d)
	if sp.dup != nil {
		return s.tie(sp.dup, d)
	}
	it := newItem(d)
	s.items.alloc(it)
	s.place(it, sp)
	return it.handle
}

// locate finds the position of a non-header descriptor. Without a header for
// its group the item is placed among the top-level rows.
func (s *Store) locate(d Descriptor) spot {
	if d.Group() != NoGroup {
		if parent := s.items.get(s.headers[d.Group()]); parent != nil {
			return s.locateChild(parent, d)
		}
	}
	return s.locateTopLevel(d, true)
}

// locateTopLevel scans ungrouped rows and headers, stepping over each header's
// run, and stops at the first row that sorts after d.
func (s *Store) locateTopLevel(d Descriptor, dedupe bool) spot {
	for node := s.items.get(s.head); node != nil; node = s.nextTopLevel(node) {
		switch s.compare(d, node.desc) {
		case Low:
			return spot{before: node}
		case Same:
			if dedupe && !node.always {
				return spot{dup: node}
			}
		case Unknown:
			return spot{}
		}
	}
	return spot{}
}

func (s *Store) locateChild(parent *Item, d Descriptor) spot {
	last := s.items.get(parent.last)
	if last == nil {
		return spot{parent: parent, after: parent}
	}
	for node := s.items.get(parent.first); node != nil; node = s.items.get(node.next) {
		switch s.compare(d, node.desc) {
		case Low:
			return spot{parent: parent, before: node}
		case Same:
			return spot{parent: parent, dup: node}
		case Unknown:
			return spot{parent: parent, after: last}
		}
		if node == last {
			break
		}
	}
	return spot{parent: parent, after: last}
}

func (s *Store) nextTopLevel(node *Item) *Item {
	if node.always {
		if last := s.items.get(node.last); last != nil {
			return s.items.get(last.next)
		}
	}
	return s.items.get(node.next)
}

// place links it at sp, maintains the parent's bounds and announces the row.
func (s *Store) place(it *Item, sp spot) {
	switch {
	case sp.before != nil:
		s.linkBefore(it, sp.before)
	case sp.after != nil:
		s.linkAfter(it, sp.after)
	default:
		s.linkBefore(it, nil)
	}

	if p := sp.parent; p != nil {
		it.parent = p.handle
		switch {
		case !p.first.Valid():
			p.first, p.last = it.handle, it.handle
		case sp.before != nil && sp.before.handle == p.first:
			p.first = it.handle
		case sp.after != nil && sp.after.handle == p.last:
			p.last = it.handle
		}
	}
	s.announce(it)
}

func (s *Store) tie(existing *Item, d Descriptor) Handle {
	if s.cfg.TiePolicy == TieReplace {
		old := existing.desc
		existing.desc = d
		s.retire(existing, old)
		s.refetch(existing)
		return existing.handle
	}
	s.log.Debug("duplicate rejected", zap.Stringer("existing", existing.handle))
	s.free(d)
	return Handle{}
}

// refetch replaces a stale payload after a descriptor change.
func (s *Store) refetch(it *Item) {
	if _, ok := it.snapshot(); ok || it.inFlight() {
		s.Update(it.handle)
		return
	}
	s.view.Refresh(it.handle)
}

// detach removes it from its group's bounds. A header left without children
// is destroyed.
func (s *Store) detach(it *Item) {
	if emptied := s.unbound(it); emptied != nil {
		s.log.Debug("group emptied", zap.Int("group", emptied.desc.Group()))
		s.destroy(emptied)
	}
}

// unbound shrinks the bounds of the parent of it and returns the parent when
// it no longer has children.
func (s *Store) unbound(it *Item) *Item {
	parent := s.items.get(it.parent)
	it.parent = Handle{}
	if parent == nil {
		return nil
	}
	h := it.handle
	switch {
	case parent.first == h && parent.last == h:
		parent.first, parent.last = Handle{}, Handle{}
		return parent
	case parent.first == h:
		parent.first = it.next
	case parent.last == h:
		parent.last = it.prev
	}
	return nil
}

// SetDescriptor replaces the descriptor of h and moves the item to where the
// new descriptor sorts, re-parenting it when the group changed. A header may
// only be replaced by a header of the same group.
func (s *Store) SetDescriptor(h Handle, d Descriptor) {
	if !s.live || d == nil {
		return
	}
	it := s.items.get(h)
	if it == nil {
		return
	}
	if it.always || d.IsHeader() {
		if !it.always || !d.IsHeader() || d.Group() != it.desc.Group() {
			s.free(d)
			return
		}
		old := it.desc
		it.desc = d
		s.retire(it, old)
		s.Update(h)
		return
	}

	old := it.desc
	it.desc = d
	s.retire(it, old)

	emptied := s.unbound(it)
	s.unlink(it)
	s.view.Remove(h)
	sp := s.locate(d)
	if sp.dup != nil {
		sp.before, sp.after, sp.dup = nil, sp.dup, nil
	}
	s.place(it, sp)
	if emptied != nil && !emptied.first.Valid() {
		s.destroy(emptied)
	}
	s.refetch(it)
}
