package sqlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
)

var log = logger.GetLogger("tree")

// feed is the state shared by a live tree and its checkouts
type feed struct {
	path   string
	key    string
	db     atomic.Pointer[sql.DB] // nil once closed
	length atomic.Uint64
	wmu    sync.Mutex // serializes appends

	readyOnce sync.Once
	readyErr  error
}

// sqlogImpl is a view onto a feed, see memlog for the same split
type sqlogImpl struct {
	feed     *feed
	limit    uint64
	readOnly bool
}

// NewSQLog returns a tree stored in the SQLite database at path.
// The database is created on Ready if it does not exist yet. key is only
// used when a new database is created, existing databases keep their key.
func NewSQLog(path, key string) tree.ITree {
	return &sqlogImpl{feed: &feed{path: path, key: key}}
}

// conn returns the open database of the feed
func (f *feed) conn() (*sql.DB, error) {
	db := f.db.Load()
	if db == nil {
		return nil, tree.ErrClosed
	}
	return db, nil
}

func (s *sqlogImpl) bound() uint64 {
	if s.readOnly {
		return s.limit
	}
	return s.feed.length.Load()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see tree/interface.go)
// --------------------------------------------------------------------------

func (s *sqlogImpl) Ready(ctx context.Context) error {
	s.feed.readyOnce.Do(func() {
		s.feed.readyErr = s.feed.open(ctx)
	})
	return s.feed.readyErr
}

// open creates the schema and loads the feed key and log length
func (f *feed) open(ctx context.Context) error {
	db, err := sql.Open("sqlite", f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	// one writer at a time, sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	if f.key != "" {
		if _, err := db.ExecContext(ctx, insertFeedSQL, f.key, time.Now().UTC().Format(time.RFC3339)); err != nil {
			db.Close()
			return fmt.Errorf("insert feed key: %w", err)
		}
	}
	if err := db.QueryRowContext(ctx, selectFeedSQL).Scan(&f.key); err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("feed %s has no key", f.path)
		}
		return fmt.Errorf("read feed key: %w", err)
	}

	var count uint64
	if err := db.QueryRowContext(ctx, countLogSQL).Scan(&count); err != nil {
		db.Close()
		return fmt.Errorf("count log: %w", err)
	}
	f.length.Store(count)
	f.db.Store(db)

	log.Debugf("opened feed %s (%d entries) at %s", f.key, count, f.path)
	return nil
}

func (s *sqlogImpl) Key() string {
	return s.feed.key
}

func (s *sqlogImpl) Version() uint64 {
	return s.bound()
}

// latest returns the latest entry written exactly at name
func (s *sqlogImpl) latest(ctx context.Context, db *sql.DB, name string) (tree.Entry, bool, error) {
	e := tree.Entry{Name: name}
	var deleted int
	err := db.QueryRowContext(ctx, selectLatestSQL, name, s.bound()).Scan(&e.Seq, &e.Value, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	e.Deleted = deleted != 0
	return e, true, nil
}

func (s *sqlogImpl) Get(ctx context.Context, name string) ([]byte, error) {
	db, err := s.feed.conn()
	if err != nil {
		return nil, err
	}
	e, ok, err := s.latest(ctx, db, tree.Clean(name))
	if err != nil {
		return nil, err
	}
	if !ok || e.Deleted {
		return nil, tree.ErrNotFound
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e.Value, nil
}

// append writes a new entry at the end of the log
func (s *sqlogImpl) append(ctx context.Context, name string, value []byte, deleted bool) (uint64, error) {
	if s.readOnly {
		return 0, tree.ErrReadOnly
	}

	s.feed.wmu.Lock()
	defer s.feed.wmu.Unlock()

	db, err := s.feed.conn()
	if err != nil {
		return 0, err
	}

	if deleted {
		e, ok, err := s.latest(ctx, db, name)
		if err != nil {
			return 0, err
		}
		if !ok || e.Deleted {
			return 0, tree.ErrNotFound
		}
	} else if value == nil {
		value = []byte{}
	}

	seq := s.feed.length.Load()
	var del int
	if deleted {
		del = 1
	}
	if _, err := db.ExecContext(ctx, insertEntrySQL, seq, name, value, del); err != nil {
		return 0, fmt.Errorf("append entry %d: %w", seq, err)
	}
	s.feed.length.Store(seq + 1)
	return seq, nil
}

func (s *sqlogImpl) Put(ctx context.Context, name string, value []byte) (uint64, error) {
	return s.append(ctx, tree.Clean(name), value, false)
}

func (s *sqlogImpl) Delete(ctx context.Context, name string) (uint64, error) {
	return s.append(ctx, tree.Clean(name), nil, true)
}

func (s *sqlogImpl) List(ctx context.Context, name string) ([]string, error) {
	db, err := s.feed.conn()
	if err != nil {
		return nil, err
	}
	name = tree.Clean(name)
	under := tree.Under(name)

	rows, err := db.QueryContext(ctx, selectLiveBelowSQL, s.bound(), len(under), under)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		if child := tree.Child(n, name); child != "" {
			seen[child] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(seen) == 0 {
		return nil, tree.ErrNotFound
	}
	children := make([]string, 0, len(seen))
	for child := range seen {
		children = append(children, child)
	}
	sort.Strings(children)
	return children, nil
}

func (s *sqlogImpl) Path(ctx context.Context, name string) ([]uint64, error) {
	db, err := s.feed.conn()
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, prefix := range tree.Prefixes(name) {
		e, ok, err := s.latest(ctx, db, prefix)
		if err != nil {
			return nil, err
		}
		if ok && !e.Deleted {
			seqs = append(seqs, e.Seq)
		}
	}
	if len(seqs) == 0 {
		return nil, tree.ErrNotFound
	}
	return seqs, nil
}

func (s *sqlogImpl) Head(ctx context.Context, prefix string) (uint64, error) {
	db, err := s.feed.conn()
	if err != nil {
		return 0, err
	}
	prefix = tree.Clean(prefix)
	under := tree.Under(prefix)

	var head sql.NullInt64
	err = db.QueryRowContext(ctx, selectHeadSQL, s.bound(), prefix, len(under), under).Scan(&head)
	if err != nil {
		return 0, err
	}
	if !head.Valid {
		return 0, tree.ErrNotFound
	}
	return uint64(head.Int64), nil
}

func (s *sqlogImpl) Entry(ctx context.Context, seq uint64) (tree.Entry, error) {
	db, err := s.feed.conn()
	if err != nil {
		return tree.Entry{}, err
	}
	if seq >= s.bound() {
		return tree.Entry{}, tree.ErrNotFound
	}
	e := tree.Entry{Seq: seq}
	var deleted int
	err = db.QueryRowContext(ctx, selectEntrySQL, seq).Scan(&e.Name, &e.Value, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return e, tree.ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.Deleted = deleted != 0
	if e.Deleted {
		e.Value = nil
	} else if e.Value == nil {
		e.Value = []byte{}
	}
	return e, nil
}

func (s *sqlogImpl) Checkout(version uint64) (tree.ITree, error) {
	if version > s.bound() {
		return nil, fmt.Errorf("%w: %d > %d", tree.ErrInvalidVersion, version, s.bound())
	}
	return &sqlogImpl{feed: s.feed, limit: version, readOnly: true}, nil
}

func (s *sqlogImpl) Close() error {
	if s.readOnly {
		return nil
	}
	s.feed.wmu.Lock()
	defer s.feed.wmu.Unlock()
	db := s.feed.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}
