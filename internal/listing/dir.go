package listing

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/five82/liststore/internal/store"
)

// Directory listing groups.
const (
	GroupDirs  = 0
	GroupFiles = 1
)

// FileDescriptor describes one directory entry.
type FileDescriptor struct {
	Path string
	Name string
	Dir  bool
}

func (d *FileDescriptor) Group() int {
	if d.Dir {
		return GroupDirs
	}
	return GroupFiles
}

func (d *FileDescriptor) IsHeader() bool { return false }

// FileInfo is the payload of a FileDescriptor.
type FileInfo struct {
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// DirSource lists one directory, directories first.
type DirSource struct {
	root          string
	includeHidden bool
	log           *zap.Logger
}

// NewDirSource returns a source listing root.
func NewDirSource(root string, includeHidden bool, log *zap.Logger) *DirSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &DirSource{root: root, includeHidden: includeHidden, log: log}
}

func (s *DirSource) sealed() {}

func (s *DirSource) Name() string { return "dir:" + s.root }

func (s *DirSource) Close() error { return nil }

// List emits every entry of the root directory. Entries arrive in file name
// order, not in display order; the store sorts them into their group.
func (s *DirSource) List(ctx context.Context, emit func(store.Descriptor) error) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}

	var announced [2]bool
	titles := [2]string{GroupDirs: "Directories", GroupFiles: "Files"}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.includeHidden && IsHiddenName(entry.Name()) {
			continue
		}
		d := &FileDescriptor{
			Path: filepath.Join(s.root, entry.Name()),
			Name: entry.Name(),
			Dir:  entry.IsDir(),
		}
		g := d.Group()
		if !announced[g] {
			announced[g] = true
			if err := emit(&Header{Title: titles[g], Index: g}); err != nil {
				return err
			}
		}
		if err := emit(d); err != nil {
			return err
		}
	}
	return nil
}

// Fetch stats the entry. Headers materialize as their title.
func (s *DirSource) Fetch(ctx context.Context, d store.Descriptor) any {
	if ctx.Err() != nil {
		return nil
	}
	switch d := d.(type) {
	case *Header:
		return d.Title
	case *FileDescriptor:
		info, err := os.Lstat(d.Path)
		if err != nil {
			s.log.Debug("stat failed", zap.String("path", d.Path), zap.Error(err))
			return nil
		}
		return &FileInfo{Size: info.Size(), Mode: info.Mode(), ModTime: info.ModTime()}
	}
	return nil
}

// Sort orders directories before files and entries by name, ignoring case.
func (s *DirSource) Sort(a, b store.Descriptor) store.Order {
	if o := compareInt(a.Group(), b.Group()); o != store.Same {
		return o
	}
	if o, ok := headerFirst(a, b); ok {
		return o
	}
	fa, okA := a.(*FileDescriptor)
	fb, okB := b.(*FileDescriptor)
	if !okA || !okB {
		return store.Unknown
	}
	return compareFold(fa.Name, fb.Name)
}

// IsHiddenName reports whether a file name is hidden on Unix systems. The
// special entries "." and ".." are not hidden.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
