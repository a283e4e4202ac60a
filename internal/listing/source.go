package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/liststore/internal/config"
	"github.com/five82/liststore/internal/store"
)

// ErrUnknownSource is returned by Open for an unsupported source kind.
var ErrUnknownSource = errors.New("listing: unknown source")

// Source enumerates descriptors for the store and materializes their
// payloads. The set of sources is closed: DirSource and DBSource.
type Source interface {
	// Name identifies the source in logs and the status bar.
	Name() string
	// List calls emit for every descriptor in listing order. A group's
	// Header is emitted before the first member of the group. List stops
	// at the first error returned by emit.
	List(ctx context.Context, emit func(store.Descriptor) error) error
	// Fetch builds the payload for d, or returns nil on failure.
	Fetch(ctx context.Context, d store.Descriptor) any
	// Sort orders descriptors for sorted group insertion.
	Sort(a, b store.Descriptor) store.Order
	Close() error

	sealed()
}

// Header is the descriptor of a group header row.
type Header struct {
	Title string
	Index int
}

func (h *Header) Group() int     { return h.Index }
func (h *Header) IsHeader() bool { return true }

// Open builds the source selected by cfg.Source.
func Open(cfg config.Config, log *zap.Logger) (Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Source {
	case config.SourceDir:
		return NewDirSource(cfg.Dir.Path, cfg.Dir.IncludeHidden, log), nil
	case config.SourceDB:
		return OpenDB(cfg.DB, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

// Callbacks adapts src to the store's callback set.
func Callbacks(src Source) store.Callbacks {
	return store.Callbacks{
		Fetch: src.Fetch,
		Sort:  src.Sort,
	}
}

func compareInt(a, b int) store.Order {
	switch {
	case a < b:
		return store.Low
	case a > b:
		return store.High
	default:
		return store.Same
	}
}

func compareString(a, b string) store.Order {
	return store.Order(strings.Compare(a, b))
}

// compareFold orders case-insensitively, breaking ties on the exact bytes.
func compareFold(a, b string) store.Order {
	if o := compareString(strings.ToLower(a), strings.ToLower(b)); o != store.Same {
		return o
	}
	return compareString(a, b)
}

// headerFirst orders a header against a member of the same group.
func headerFirst(a, b store.Descriptor) (store.Order, bool) {
	ha, hb := a.IsHeader(), b.IsHeader()
	switch {
	case ha && hb:
		return store.Same, true
	case ha:
		return store.Low, true
	case hb:
		return store.High, true
	}
	return store.Same, false
}
