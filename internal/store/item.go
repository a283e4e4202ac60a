package store

import (
	"container/list"
	"context"
	"sync"
)

// NoGroup is the group index of descriptors that belong to no group.
const NoGroup = -1

// Descriptor is the immutable, producer-supplied metadata for one row. The
// store owns it from Add until the item is destroyed, when it is handed to
// Callbacks.Free.
type Descriptor interface {
	// Group returns the group index, or NoGroup.
	Group() int
	// IsHeader reports whether the descriptor describes a group header row.
	IsHeader() bool
}

// Item is one row of the store.
//
// payload, fetched, epoch, dead, retired and the worker handle are shared
// with fetch workers and guarded by mu. Every other field belongs to the loop
// goroutine.
type Item struct {
	mu      sync.Mutex
	payload any
	fetched bool
	// epoch changes whenever the payload is released. A worker started in an
	// older epoch never commits.
	epoch  uint64
	dead   bool
	cancel context.CancelFunc
	done   chan struct{}
	// retired holds replaced or destroyed descriptors whose Free waits for
	// the in-flight worker to release its result.
	retired []Descriptor

	handle   Handle
	desc     Descriptor
	live     bool
	wasLive  bool
	pending  bool
	realized *list.Element
	always   bool

	parent Handle
	first  Handle
	last   Handle
	prev   Handle
	next   Handle
}

func newItem(d Descriptor) *Item {
	return &Item{desc: d}
}

func (it *Item) snapshot() (any, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.payload, it.fetched
}

func (it *Item) inFlight() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.cancel != nil
}

// cancelWorker signals an in-flight fetch. The worker clears its own handle
// when it returns.
func (it *Item) cancelWorker() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.cancel == nil {
		return false
	}
	it.cancel()
	return true
}

// takePayload clears the payload, cancels any worker and invalidates its
// result. It returns what was held.
func (it *Item) takePayload() (any, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.cancel != nil {
		it.cancel()
	}
	it.epoch++
	payload, had := it.payload, it.fetched
	it.payload = nil
	it.fetched = false
	return payload, had
}

func (it *Item) markDead() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.dead = true
	if it.cancel != nil {
		it.cancel()
	}
}
