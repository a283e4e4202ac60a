package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/five82/liststore/internal/loop"
)

type testDesc struct {
	name   string
	group  int
	key    int
	header bool
}

func (d *testDesc) Group() int     { return d.group }
func (d *testDesc) IsHeader() bool { return d.header }

func item(name string, group, key int) *testDesc {
	return &testDesc{name: name, group: group, key: key}
}

func header(name string, group int) *testDesc {
	return &testDesc{name: name, group: group, key: group, header: true}
}

// byGroupThenKey orders headers by group and everything else by key. A header's
// key is its group index.
func byGroupThenKey(a, b Descriptor) Order {
	da, db := a.(*testDesc), b.(*testDesc)
	if da.header && db.header {
		return cmpInt(da.group, db.group)
	}
	return cmpInt(da.key, db.key)
}

func cmpInt(a, b int) Order {
	switch {
	case a < b:
		return Low
	case a > b:
		return High
	default:
		return Same
	}
}

// recorder counts callback invocations. Fetch callbacks may run on workers.
type recorder struct {
	mu        sync.Mutex
	fetches   map[string]int
	unfetches map[string]int
	frees     map[string]int
	released  []any
	selected  []Handle
	// order lists unfetch and free calls as they happen.
	order []string
}

func newRecorder() *recorder {
	return &recorder{
		fetches:   make(map[string]int),
		unfetches: make(map[string]int),
		frees:     make(map[string]int),
	}
}

func (r *recorder) count(m map[string]int, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[name]
}

func (r *recorder) total(m map[string]int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// recView logs view notifications as short strings.
type recView struct {
	s      *Store
	events []string
}

func (v *recView) name(h Handle) string {
	if d, ok := v.s.Descriptor(h).(*testDesc); ok {
		return d.name
	}
	return h.String()
}

func (v *recView) InsertBefore(row, anchor Handle) {
	v.events = append(v.events, "before "+v.name(row)+" "+v.name(anchor))
}
func (v *recView) InsertAfter(row, anchor Handle) {
	v.events = append(v.events, "after "+v.name(row)+" "+v.name(anchor))
}
func (v *recView) Append(row Handle)  { v.events = append(v.events, "append "+v.name(row)) }
func (v *recView) Refresh(row Handle) { v.events = append(v.events, "refresh "+v.name(row)) }
func (v *recView) Remove(row Handle)  { v.events = append(v.events, "remove "+row.String()) }

func (v *recView) count(prefix string) int {
	n := 0
	for _, e := range v.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

type harness struct {
	t     *testing.T
	q     *loop.Queue
	s     *Store
	rec   *recorder
	view  *recView
	fetch func(ctx context.Context, d *testDesc) any
}

type harnessOption func(*Options, *harness)

func withFetch(fn func(ctx context.Context, d *testDesc) any) harnessOption {
	return func(_ *Options, h *harness) { h.fetch = fn }
}

func withLogger(l *zap.Logger) harnessOption {
	return func(o *Options, _ *harness) { o.Logger = l }
}

func newHarness(t *testing.T, cfg Config, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		q:   loop.NewQueue(),
		rec: newRecorder(),
		fetch: func(_ context.Context, d *testDesc) any {
			return "payload:" + d.name
		},
	}
	o := Options{
		Config: cfg,
		Loop:   h.q,
		Callbacks: Callbacks{
			Fetch: func(ctx context.Context, d Descriptor) any {
				td := d.(*testDesc)
				h.rec.mu.Lock()
				h.rec.fetches[td.name]++
				h.rec.mu.Unlock()
				return h.fetch(ctx, td)
			},
			Unfetch: func(d Descriptor, payload any) {
				h.rec.mu.Lock()
				defer h.rec.mu.Unlock()
				h.rec.unfetches[d.(*testDesc).name]++
				h.rec.released = append(h.rec.released, payload)
				h.rec.order = append(h.rec.order, "unfetch "+d.(*testDesc).name)
			},
			Select: func(sel Handle) {
				h.rec.mu.Lock()
				defer h.rec.mu.Unlock()
				h.rec.selected = append(h.rec.selected, sel)
			},
			Sort: byGroupThenKey,
			Free: func(d Descriptor) {
				h.rec.mu.Lock()
				defer h.rec.mu.Unlock()
				h.rec.frees[d.(*testDesc).name]++
				h.rec.order = append(h.rec.order, "free "+d.(*testDesc).name)
			},
		},
	}
	for _, opt := range opts {
		opt(&o, h)
	}
	s, err := New(o)
	require.NoError(t, err)
	h.s = s
	h.view = &recView{s: s}
	s.SetView(h.view)
	t.Cleanup(s.Close)
	return h
}

// realize reports h as visible and runs the resulting evaluation job.
func (h *harness) realize(handles ...Handle) {
	for _, x := range handles {
		h.s.NotifyRealized(x)
		h.q.Drain()
	}
}

func (h *harness) unrealize(handles ...Handle) {
	for _, x := range handles {
		h.s.NotifyUnrealized(x)
		h.q.Drain()
	}
}

// names returns display order as descriptor names.
func (h *harness) names() []string {
	var out []string
	for _, x := range h.s.Handles() {
		out = append(out, h.s.Descriptor(x).(*testDesc).name)
	}
	return out
}

// waitFor drains the loop until cond holds or the deadline passes.
func (h *harness) waitFor(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.q.Drain()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

// assertCoupling checks that every item has a payload exactly when fetched.
func (h *harness) assertCoupling() {
	h.t.Helper()
	for _, x := range h.s.Handles() {
		it := h.s.items.get(x)
		it.mu.Lock()
		payload, fetched := it.payload, it.fetched
		it.mu.Unlock()
		require.Equal(h.t, payload != nil, fetched, fmt.Sprintf("item %s", x))
	}
}
