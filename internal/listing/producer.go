package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/five82/liststore/internal/state"
	"github.com/five82/liststore/internal/store"
)

// DefaultBatchSize is the number of descriptors handed to the store per job.
const DefaultBatchSize = 64

// Producer feeds a Source into a Store. It runs on its own goroutine and
// reaches the store only through jobs posted to Loop.
type Producer struct {
	Source Source
	Store  *store.Store
	Loop   store.Dispatcher
	// Progress receives a snapshot after every batch. Optional.
	Progress *state.Store
	// Accept filters descriptors before they reach the store. A header is
	// only added once one of its members is accepted. Optional.
	Accept    func(store.Descriptor) bool
	BatchSize int
	// Sorted collects the whole listing and sorts it with the source's
	// comparator before feeding, so every insertion lands at the tail.
	Sorted bool
	Log    *zap.Logger

	attempts int
}

// Run performs one listing pass. A cancelled context ends the pass with the
// context's error; descriptors already posted stay in the store.
func (p *Producer) Run(ctx context.Context) error {
	if p.Source == nil || p.Store == nil || p.Loop == nil {
		return errors.New("producer: source, store and loop are required")
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	p.attempts++
	prog := state.Progress{Source: p.Source.Name(), Attempt: p.attempts, Started: time.Now()}
	pending := make(map[int]store.Descriptor)
	var batch, all []store.Descriptor

	flush := func() {
		if len(batch) == 0 {
			return
		}
		items := batch
		batch = nil
		p.Loop.Post(func() {
			for _, d := range items {
				p.Store.Add(d)
			}
		})
		prog.Batches++
		p.report(&prog)
	}
	push := func(d store.Descriptor) {
		if p.Sorted {
			all = append(all, d)
			return
		}
		batch = append(batch, d)
		if len(batch) >= size {
			flush()
		}
	}

	emit := func(d store.Descriptor) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsHeader() {
			pending[d.Group()] = d
			return nil
		}
		if p.Accept != nil && !p.Accept(d) {
			prog.Rejected++
			return nil
		}
		if h, ok := pending[d.Group()]; ok {
			delete(pending, d.Group())
			if hdr, ok := h.(*Header); ok {
				prog.Groups = append(prog.Groups, hdr.Title)
			}
			push(h)
		}
		push(d)
		prog.Listed++
		return nil
	}

	err := p.Source.List(ctx, emit)
	if err == nil && p.Sorted {
		sortDescriptors(all, p.Source.Sort)
		for _, d := range all {
			batch = append(batch, d)
			if len(batch) >= size {
				flush()
			}
		}
	}
	flush()

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("listing failed",
			zap.String("source", prog.Source),
			zap.Int("attempt", prog.Attempt),
			zap.Int("listed", prog.Listed),
			zap.Error(err))
		return fmt.Errorf("list %s: %w", prog.Source, err)
	}

	prog.Done = true
	p.report(&prog)
	log.Info("listing done",
		zap.String("source", prog.Source),
		zap.Int("listed", prog.Listed),
		zap.Int("rejected", prog.Rejected),
		zap.Duration("took", time.Since(prog.Started)))
	return nil
}

func (p *Producer) report(prog *state.Progress) {
	if p.Progress != nil {
		p.Progress.Update(prog, nil)
	}
}

// sortDescriptors orders ds with cmp. Pairs the comparator cannot order keep
// their listing order.
func sortDescriptors(ds []store.Descriptor, cmp func(a, b store.Descriptor) store.Order) {
	sort.SliceStable(ds, func(i, j int) bool {
		return cmp(ds[i], ds[j]) == store.Low
	})
}
