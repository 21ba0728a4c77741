package memlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/puzpuzpuz/xsync/v3"
)

// snapshotSuffix is the file extension of feed snapshots written by a Backend with a directory
const snapshotSuffix = ".memlog"

// Backend keeps the in-memory feeds it created so they can be opened again by key.
// A Backend is owned by its caller (e.g. one per test) and shares nothing with other instances.
type Backend struct {
	dir   string
	feeds *xsync.MapOf[string, *MemLog]
}

// NewBackend creates a new, empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{feeds: xsync.NewMapOf[string, *MemLog]()}
}

// OpenBackend creates an in-memory backend that loads all feed snapshots found in dir.
// Close writes every feed back to dir.
func OpenBackend(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+snapshotSuffix))
	if err != nil {
		return nil, err
	}

	b := NewBackend()
	b.dir = dir
	for _, path := range matches {
		t, err := loadSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		b.Add(t)
	}
	log.Infof("loaded %d feeds from %s", len(matches), dir)
	return b, nil
}

func (b *Backend) Create(_ context.Context) (tree.ITree, error) {
	t := NewMemLog("")
	b.feeds.Store(t.Key(), t)
	log.Debugf("created in-memory feed %s", t.Key())
	return t, nil
}

func (b *Backend) Open(_ context.Context, key string) (tree.ITree, error) {
	t, ok := b.feeds.Load(key)
	if !ok {
		return nil, tree.ErrNotFound
	}
	return t, nil
}

// Add registers an existing tree (e.g. one restored with Load) with the backend.
func (b *Backend) Add(t *MemLog) {
	b.feeds.Store(t.Key(), t)
}

// Close snapshots all feeds (if the backend has a directory) and closes them.
func (b *Backend) Close() error {
	var errs []error
	b.feeds.Range(func(key string, t *MemLog) bool {
		if b.dir != "" {
			if err := saveSnapshot(filepath.Join(b.dir, key+snapshotSuffix), t); err != nil {
				errs = append(errs, fmt.Errorf("save feed %s: %w", key, err))
			}
		}
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
		b.feeds.Delete(key)
		return true
	})
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Snapshot Files
// --------------------------------------------------------------------------

func loadSnapshot(path string) (*MemLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t := NewMemLog("")
	if err := t.Load(f); err != nil {
		return nil, err
	}
	return t, nil
}

// saveSnapshot writes to a temporary file first so a failed save keeps the old snapshot
func saveSnapshot(path string, t *MemLog) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := t.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
