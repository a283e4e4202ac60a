package store

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Order is the result of comparing two descriptors.
type Order int

const (
	// Low means a sorts before b.
	Low Order = -1
	// Same means a and b occupy the same position; the second is a duplicate.
	Same Order = 0
	// High means a sorts after b.
	High Order = 1
	// Unknown means the comparator cannot order the pair; the new item goes
	// to the end of its run.
	Unknown Order = 2
)

// TiePolicy selects what Add does when the comparator reports Same against
// an existing item.
type TiePolicy int

const (
	// TieSkip rejects the new descriptor.
	TieSkip TiePolicy = iota
	// TieReplace swaps the existing item's descriptor for the new one and
	// refreshes its payload.
	TieReplace
)

// StalePolicy selects what happens to a fetch that completes after it was
// cancelled because its item left the viewport.
type StalePolicy int

const (
	// StaleCommit keeps the completed payload and refreshes the row.
	StaleCommit StalePolicy = iota
	// StaleDrop releases the payload through Callbacks.Unfetch.
	StaleDrop
)

// DefaultCacheMax bounds the realized set when Config.CacheMax is unset.
const DefaultCacheMax = 64

var (
	ErrNoDispatcher = errors.New("store: dispatcher is required")
	ErrNoFetch      = errors.New("store: fetch callback is required")
)

// Dispatcher runs jobs on the store's loop goroutine. Post must not block.
type Dispatcher interface {
	Post(job func())
}

// Callbacks is the user side of the store.
type Callbacks struct {
	// Fetch materializes a payload. It runs on a worker goroutine when
	// Config.FetchThread is set and should return promptly once ctx is done.
	// A nil result means the fetch failed; the item is retried on its next
	// realization.
	Fetch func(ctx context.Context, d Descriptor) any
	// Unfetch releases a payload produced by Fetch. Optional.
	Unfetch func(d Descriptor, payload any)
	// Select is invoked for selection events reported by the view. Optional.
	Select func(h Handle)
	// Sort orders descriptors for insertion. Optional; without it every item
	// is appended.
	Sort func(a, b Descriptor) Order
	// Free releases a descriptor when its item is destroyed. Optional.
	Free func(d Descriptor)
}

// Config holds the tunables of a store.
type Config struct {
	CacheMax    int
	FetchThread bool
	TiePolicy   TiePolicy
	StalePolicy StalePolicy
}

// Options configure New.
type Options struct {
	Config    Config
	Callbacks Callbacks
	Loop      Dispatcher
	View      View // nil discards notifications until SetView
	Logger    *zap.Logger
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	Items         int
	Realized      int
	AlwaysFetched int
	Fetched       int
	InFlight      int
	CacheMax      int
}

// Store owns the item collection, the bounded realized set and the
// always-fetched set.
//
// Apart from construction, every method must be called from the loop
// goroutine that drains the configured Dispatcher.
type Store struct {
	cfg      Config
	cb       Callbacks
	loop     Dispatcher
	view     View
	log      *zap.Logger
	cacheMax int
	live     bool

	items    arena
	head     Handle
	tail     Handle
	realized *list.List // Front = most recently realized, Back = next to evict
	always   map[Handle]struct{}
	headers  map[int]Handle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a live store.
func New(opts Options) (*Store, error) {
	if opts.Loop == nil {
		return nil, ErrNoDispatcher
	}
	if opts.Callbacks.Fetch == nil {
		return nil, ErrNoFetch
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	view := opts.View
	if view == nil {
		view = nopView{}
	}
	cacheMax := opts.Config.CacheMax
	if cacheMax <= 0 {
		cacheMax = DefaultCacheMax
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		cfg:      opts.Config,
		cb:       opts.Callbacks,
		loop:     opts.Loop,
		view:     view,
		log:      log,
		cacheMax: cacheMax,
		live:     true,
		realized: list.New(),
		always:   make(map[Handle]struct{}),
		headers:  make(map[int]Handle),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SetView swaps the consuming view. A nil view discards notifications.
func (s *Store) SetView(v View) {
	if v == nil {
		v = nopView{}
	}
	s.view = v
}

// Live reports whether the store still accepts work.
func (s *Store) Live() bool {
	return s.live
}

// Add wraps d in a new item and places it. It returns the zero Handle when the
// store is closed or the descriptor is rejected as a duplicate. Adding a header
// for a group that already has one returns the existing header.
func (s *Store) Add(d Descriptor) Handle {
	if !s.live || d == nil {
		return Handle{}
	}
	if d.IsHeader() {
		return s.addHeader(d)
	}
	return s.addItem(d)
}

// Delete destroys the item behind h. Deleting a header destroys its whole
// group. Deleting the last child of a group destroys the emptied header.
func (s *Store) Delete(h Handle) {
	if !s.live {
		return
	}
	it := s.items.get(h)
	if it == nil {
		return
	}
	if it.always && it.first.Valid() {
		for _, child := range s.children(it) {
			child.parent = Handle{}
			s.destroy(child)
		}
		it.first, it.last = Handle{}, Handle{}
	}
	s.detach(it)
	s.destroy(it)
}

// Update forces a fresh payload. Always-fetched items are unfetched and
// refetched immediately. Realized items drop their payload and go back through
// realization evaluation.
func (s *Store) Update(h Handle) {
	if !s.live {
		return
	}
	it := s.items.get(h)
	if it == nil {
		return
	}
	switch {
	case it.always:
		s.unfetch(it)
		s.view.Refresh(h)
		// With a worker still in flight this is a no-op; the cancelled
		// worker restarts the fetch when it settles.
		s.fetch(it)
	case it.realized != nil:
		s.unfetch(it)
		if it.live {
			it.wasLive = false
			s.schedule(it)
		} else {
			s.realized.Remove(it.realized)
			it.realized = nil
		}
		s.view.Refresh(h)
	}
}

// SetCacheMax changes the realized-set bound, evicting from the oldest end
// when the set is now too large. Values below one are raised to one.
func (s *Store) SetCacheMax(n int) {
	if !s.live {
		return
	}
	if n < 1 {
		n = 1
	}
	s.cacheMax = n
	for s.realized.Len() > s.cacheMax {
		s.evictOldest()
	}
}

// CacheMax returns the current realized-set bound.
func (s *Store) CacheMax() int {
	return s.cacheMax
}

// Close tears the store down. In-flight workers are cancelled and joined
// before any payload or descriptor is released, so Close blocks for as long as
// the slowest Fetch callback takes to notice its cancelled context. Close is
// safe to call more than once.
func (s *Store) Close() {
	if !s.live {
		return
	}
	s.live = false
	s.cancel()

	for it := s.items.get(s.head); it != nil; it = s.items.get(it.next) {
		it.markDead()
	}
	s.wg.Wait()

	freed := 0
	for it := s.items.get(s.head); it != nil; it = s.items.get(it.next) {
		if payload, had := it.takePayload(); had {
			s.release(it.desc, payload)
		}
		s.free(it.desc)
		freed++
	}

	s.realized.Init()
	s.always = nil
	s.headers = nil
	s.items.reset()
	s.head, s.tail = Handle{}, Handle{}
	s.log.Debug("store closed", zap.Int("items", freed))
}

// NotifySelected forwards a selection event from the view.
func (s *Store) NotifySelected(h Handle) {
	if !s.live || s.cb.Select == nil || s.items.get(h) == nil {
		return
	}
	s.cb.Select(h)
}

// Len returns the number of items, headers included.
func (s *Store) Len() int {
	return s.items.count
}

// Handles returns every item in display order.
func (s *Store) Handles() []Handle {
	out := make([]Handle, 0, s.items.count)
	for it := s.items.get(s.head); it != nil; it = s.items.get(it.next) {
		out = append(out, it.handle)
	}
	return out
}

// Descriptor returns the descriptor of h, or nil when h is stale.
func (s *Store) Descriptor(h Handle) Descriptor {
	if it := s.items.get(h); it != nil {
		return it.desc
	}
	return nil
}

// Payload returns the materialized payload of h.
func (s *Store) Payload(h Handle) (any, bool) {
	it := s.items.get(h)
	if it == nil {
		return nil, false
	}
	return it.snapshot()
}

// Fetched reports whether h currently holds a payload.
func (s *Store) Fetched(h Handle) bool {
	_, ok := s.Payload(h)
	return ok
}

// IsHeader reports whether h is a group header.
func (s *Store) IsHeader(h Handle) bool {
	it := s.items.get(h)
	return it != nil && it.always
}

// GroupBounds returns the first and last child of header h.
func (s *Store) GroupBounds(h Handle) (first, last Handle, ok bool) {
	it := s.items.get(h)
	if it == nil || !it.always {
		return Handle{}, Handle{}, false
	}
	return it.first, it.last, true
}

// Realized returns the realized set, most recently realized first.
func (s *Store) Realized() []Handle {
	out := make([]Handle, 0, s.realized.Len())
	for el := s.realized.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Item).handle)
	}
	return out
}

// RealizedLen returns the size of the realized set.
func (s *Store) RealizedLen() int {
	return s.realized.Len()
}

// Stats summarizes the store.
func (s *Store) Stats() Stats {
	st := Stats{
		Items:         s.items.count,
		Realized:      s.realized.Len(),
		AlwaysFetched: len(s.always),
		CacheMax:      s.cacheMax,
	}
	for it := s.items.get(s.head); it != nil; it = s.items.get(it.next) {
		it.mu.Lock()
		if it.fetched {
			st.Fetched++
		}
		if it.cancel != nil {
			st.InFlight++
		}
		it.mu.Unlock()
	}
	return st
}

// destroy releases one item that is already detached from its group.
func (s *Store) destroy(it *Item) {
	h := it.handle
	if it.realized != nil {
		s.realized.Remove(it.realized)
		it.realized = nil
	}
	if it.always {
		delete(s.always, h)
		if s.headers[it.desc.Group()] == h {
			delete(s.headers, it.desc.Group())
		}
	}
	s.unfetch(it)
	it.markDead()
	s.unlink(it)
	s.view.Remove(h)
	s.retire(it, it.desc)
	s.items.release(h)
}

func (s *Store) children(header *Item) []*Item {
	var out []*Item
	for c := s.items.get(header.first); c != nil; c = s.items.get(c.next) {
		out = append(out, c)
		if c.handle == header.last {
			break
		}
	}
	return out
}

// retire frees d once no worker of it can still hand it to Unfetch. With a
// worker in flight the worker frees it after settling.
func (s *Store) retire(it *Item, d Descriptor) {
	it.mu.Lock()
	if it.cancel != nil {
		it.retired = append(it.retired, d)
		it.mu.Unlock()
		return
	}
	it.mu.Unlock()
	s.free(d)
}

func (s *Store) free(d Descriptor) {
	if s.cb.Free != nil && d != nil {
		s.cb.Free(d)
	}
}

func (s *Store) release(d Descriptor, payload any) {
	if s.cb.Unfetch != nil {
		s.cb.Unfetch(d, payload)
	}
}

func (s *Store) compare(a, b Descriptor) Order {
	if s.cb.Sort == nil {
		return Unknown
	}
	switch o := s.cb.Sort(a, b); o {
	case Low, Same, High:
		return o
	default:
		return Unknown
	}
}

// linkBefore threads it into display order ahead of anchor, or at the tail
// when anchor is nil.
func (s *Store) linkBefore(it, anchor *Item) {
	if anchor == nil {
		it.prev, it.next = s.tail, Handle{}
		if tail := s.items.get(s.tail); tail != nil {
			tail.next = it.handle
		} else {
			s.head = it.handle
		}
		s.tail = it.handle
		return
	}
	it.prev, it.next = anchor.prev, anchor.handle
	if prev := s.items.get(anchor.prev); prev != nil {
		prev.next = it.handle
	} else {
		s.head = it.handle
	}
	anchor.prev = it.handle
}

func (s *Store) linkAfter(it, anchor *Item) {
	if next := s.items.get(anchor.next); next != nil {
		s.linkBefore(it, next)
		return
	}
	s.linkBefore(it, nil)
}

func (s *Store) unlink(it *Item) {
	if prev := s.items.get(it.prev); prev != nil {
		prev.next = it.next
	} else if s.head == it.handle {
		s.head = it.next
	}
	if next := s.items.get(it.next); next != nil {
		next.prev = it.prev
	} else if s.tail == it.handle {
		s.tail = it.prev
	}
	it.prev, it.next = Handle{}, Handle{}
}

// announce tells the view where a freshly linked row sits.
func (s *Store) announce(it *Item) {
	switch {
	case it.next.Valid():
		s.view.InsertBefore(it.handle, it.next)
	case it.prev.Valid():
		s.view.InsertAfter(it.handle, it.prev)
	default:
		s.view.Append(it.handle)
	}
}
