package store

import "fmt"

// Handle is a stable, generation-checked reference to an item. The zero Handle
// refers to nothing. A Handle kept after its item is deleted (or after the store
// is closed) resolves to nothing instead of to whatever reuses the slot.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was ever issued by a store. It does not report
// whether the item still exists.
func (h Handle) Valid() bool {
	return h.gen != 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "-"
	}
	return fmt.Sprintf("%d.%d", h.index, h.gen)
}

// arena owns item slots. Display order is an intrusive list threaded through
// the items by handle, so neighbours and group bounds survive slot reuse.
type arena struct {
	items []*Item
	gens  []uint32
	free  []uint32
	count int
}

func (a *arena) alloc(it *Item) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.items))
		a.items = append(a.items, nil)
		a.gens = append(a.gens, 1)
	}
	a.items[idx] = it
	a.count++
	h := Handle{index: idx, gen: a.gens[idx]}
	it.handle = h
	return h
}

func (a *arena) get(h Handle) *Item {
	if !h.Valid() || int(h.index) >= len(a.items) || a.gens[h.index] != h.gen {
		return nil
	}
	return a.items[h.index]
}

func (a *arena) release(h Handle) {
	if a.get(h) == nil {
		return
	}
	a.items[h.index] = nil
	a.gens[h.index]++
	if a.gens[h.index] == 0 {
		a.gens[h.index] = 1
	}
	a.free = append(a.free, h.index)
	a.count--
}

func (a *arena) reset() {
	a.items = nil
	a.gens = nil
	a.free = nil
	a.count = 0
}
