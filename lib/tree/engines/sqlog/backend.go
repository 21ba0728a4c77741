package sqlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

const fileSuffix = ".db"

// Backend stores every feed in its own database file inside DataDir.
// Opened feeds are kept so repeated Opens of the same key share one connection.
type Backend struct {
	dataDir string
	feeds   *xsync.MapOf[string, tree.ITree]
}

// NewBackend creates a backend rooted at dataDir. The directory is created on first use.
func NewBackend(dataDir string) *Backend {
	if dataDir == "" {
		dataDir = "."
	}
	return &Backend{
		dataDir: dataDir,
		feeds:   xsync.NewMapOf[string, tree.ITree](),
	}
}

func (b *Backend) feedPath(key string) string {
	return filepath.Join(b.dataDir, key+fileSuffix)
}

func (b *Backend) Create(ctx context.Context) (tree.ITree, error) {
	if err := os.MkdirAll(b.dataDir, 0755); err != nil {
		return nil, err
	}
	key := uuid.NewString()
	t := NewSQLog(b.feedPath(key), key)
	if err := t.Ready(ctx); err != nil {
		return nil, err
	}
	b.feeds.Store(key, t)
	log.Infof("created feed %s", key)
	return t, nil
}

func (b *Backend) Open(ctx context.Context, key string) (tree.ITree, error) {
	if t, ok := b.feeds.Load(key); ok {
		return t, nil
	}
	if _, err := uuid.Parse(key); err != nil {
		return nil, fmt.Errorf("%w: invalid feed key %q", tree.ErrNotFound, key)
	}
	if _, err := os.Stat(b.feedPath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, tree.ErrNotFound
		}
		return nil, err
	}

	t, _ := b.feeds.LoadOrStore(key, NewSQLog(b.feedPath(key), key))
	if err := t.Ready(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Close closes all feeds opened through the backend.
func (b *Backend) Close() error {
	var errs []error
	b.feeds.Range(func(key string, t tree.ITree) bool {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close feed %s: %w", key, err))
		}
		b.feeds.Delete(key)
		return true
	})
	return errors.Join(errs...)
}
