package memlog

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum       = "MEMLOG\x00\x00" // File format identifier
	memlogVersion  = 1                // Snapshot format version
	flagTombstone  = uint8(1)         // Entry is a tombstone
	snapshotBuffer = 1024 * 1024      // 1 MB buffer for Save and Load
)

var log = logger.GetLogger("tree")

// --------------------------------------------------------------------------
// Feed (shared by the live tree and all of its checkouts)
// --------------------------------------------------------------------------

// feed holds the log and the name index of a single tree
type feed struct {
	key     string
	mu      sync.RWMutex
	entries []tree.Entry
	index   map[string][]uint64 // name -> sequence numbers of all entries written at name
	closed  bool
}

func newFeed(key string) *feed {
	return &feed{
		key:   key,
		index: make(map[string][]uint64),
	}
}

// latest returns the last entry written at name below limit.
//
// Thread-safety: the caller must hold the read lock.
func (f *feed) latest(name string, limit uint64) (tree.Entry, bool) {
	seqs := f.index[name]
	// seqs are sorted ascending, find the first seq >= limit
	i := sort.Search(len(seqs), func(i int) bool { return seqs[i] >= limit })
	if i == 0 {
		return tree.Entry{}, false
	}
	return f.entries[seqs[i-1]], true
}

// append adds a new entry to the log.
//
// Thread-safety: the caller must hold the write lock.
func (f *feed) append(name string, value []byte, deleted bool) uint64 {
	seq := uint64(len(f.entries))
	var stored []byte
	if !deleted {
		stored = make([]byte, len(value))
		copy(stored, value)
	}
	f.entries = append(f.entries, tree.Entry{Seq: seq, Name: name, Value: stored, Deleted: deleted})
	f.index[name] = append(f.index[name], seq)
	return seq
}

// --------------------------------------------------------------------------
// Tree implementation
// --------------------------------------------------------------------------

// MemLog is an in-memory tree. It is a view onto a feed: the live tree has no limit, checkouts are
// pinned to a fixed log length.
type MemLog struct {
	feed     *feed
	limit    uint64
	readOnly bool
}

// NewMemLog creates a new empty in-memory tree. An empty key generates a random one.
func NewMemLog(key string) *MemLog {
	if key == "" {
		key = uuid.NewString()
	}
	return &MemLog{feed: newFeed(key)}
}

// bound returns the effective log length of the view.
//
// Thread-safety: the caller must hold the read lock.
func (m *MemLog) bound() uint64 {
	if m.readOnly {
		return m.limit
	}
	return uint64(len(m.feed.entries))
}

func (m *MemLog) Ready(_ context.Context) error {
	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()
	if m.feed.closed {
		return tree.ErrClosed
	}
	return nil
}

func (m *MemLog) Key() string {
	return m.feed.key
}

func (m *MemLog) Version() uint64 {
	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()
	return m.bound()
}

func (m *MemLog) Get(_ context.Context, name string) ([]byte, error) {
	name = tree.Clean(name)

	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	e, ok := m.feed.latest(name, m.bound())
	if !ok || e.Deleted {
		return nil, tree.ErrNotFound
	}

	// return a copy so callers can not modify the log
	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	return value, nil
}

func (m *MemLog) Put(_ context.Context, name string, value []byte) (uint64, error) {
	if m.readOnly {
		return 0, tree.ErrReadOnly
	}
	name = tree.Clean(name)

	m.feed.mu.Lock()
	defer m.feed.mu.Unlock()
	if m.feed.closed {
		return 0, tree.ErrClosed
	}
	return m.feed.append(name, value, false), nil
}

func (m *MemLog) Delete(_ context.Context, name string) (uint64, error) {
	if m.readOnly {
		return 0, tree.ErrReadOnly
	}
	name = tree.Clean(name)

	m.feed.mu.Lock()
	defer m.feed.mu.Unlock()
	if m.feed.closed {
		return 0, tree.ErrClosed
	}
	if e, ok := m.feed.latest(name, m.bound()); !ok || e.Deleted {
		return 0, tree.ErrNotFound
	}
	return m.feed.append(name, nil, true), nil
}

func (m *MemLog) List(_ context.Context, name string) ([]string, error) {
	name = tree.Clean(name)

	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	limit := m.bound()
	seen := make(map[string]struct{})
	for n := range m.feed.index {
		child := tree.Child(n, name)
		if child == "" {
			continue
		}
		if _, ok := seen[child]; ok {
			continue
		}
		if e, ok := m.feed.latest(n, limit); ok && !e.Deleted {
			seen[child] = struct{}{}
		}
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

func (m *MemLog) Path(_ context.Context, name string) ([]uint64, error) {
	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	limit := m.bound()
	var seqs []uint64
	for _, prefix := range tree.Prefixes(name) {
		if e, ok := m.feed.latest(prefix, limit); ok && !e.Deleted {
			seqs = append(seqs, e.Seq)
		}
	}
	if len(seqs) == 0 {
		return nil, tree.ErrNotFound
	}
	return seqs, nil
}

func (m *MemLog) Head(_ context.Context, prefix string) (uint64, error) {
	prefix = tree.Clean(prefix)
	under := tree.Under(prefix)

	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	limit := m.bound()
	found := false
	var head uint64
	for n := range m.feed.index {
		if n != prefix && !strings.HasPrefix(n, under) {
			continue
		}
		if e, ok := m.feed.latest(n, limit); ok && (!found || e.Seq > head) {
			head, found = e.Seq, true
		}
	}
	if !found {
		return 0, tree.ErrNotFound
	}
	return head, nil
}

func (m *MemLog) Entry(_ context.Context, seq uint64) (tree.Entry, error) {
	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	if seq >= m.bound() {
		return tree.Entry{}, tree.ErrNotFound
	}
	e := m.feed.entries[seq]
	if e.Value != nil {
		value := make([]byte, len(e.Value))
		copy(value, e.Value)
		e.Value = value
	}
	return e, nil
}

func (m *MemLog) Checkout(version uint64) (tree.ITree, error) {
	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	if version > m.bound() {
		return nil, fmt.Errorf("%w: %d > %d", tree.ErrInvalidVersion, version, m.bound())
	}
	return &MemLog{feed: m.feed, limit: version, readOnly: true}, nil
}

func (m *MemLog) Close() error {
	if m.readOnly {
		return nil
	}
	m.feed.mu.Lock()
	defer m.feed.mu.Unlock()
	m.feed.closed = true
	return nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the whole log of the tree (including the feed key) to the writer.
// Checkouts save the log up to their version.
//
// Thread-safety: Save holds the read lock, concurrent writes wait until it returns.
func (m *MemLog) Save(w io.Writer) error {
	m.feed.mu.RLock()
	defer m.feed.mu.RUnlock()

	bw := bufio.NewWriterSize(w, snapshotBuffer)

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write format version
	if err := binary.Write(bw, binary.LittleEndian, uint8(memlogVersion)); err != nil {
		return err
	}

	// Write feed key
	if err := writeBytes(bw, []byte(m.feed.key)); err != nil {
		return err
	}

	// Write entry count
	limit := m.bound()
	if err := binary.Write(bw, binary.LittleEndian, limit); err != nil {
		return err
	}

	// Write entries in log order
	for _, e := range m.feed.entries[:limit] {
		var flags uint8
		if e.Deleted {
			flags |= flagTombstone
		}
		if err := binary.Write(bw, binary.LittleEndian, flags); err != nil {
			return err
		}
		if err := writeBytes(bw, []byte(e.Name)); err != nil {
			return err
		}
		if err := writeBytes(bw, e.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the log of the tree with the snapshot read from r.
//
// Thread-safety: Load holds the write lock for the whole operation.
func (m *MemLog) Load(r io.Reader) error {
	if m.readOnly {
		return tree.ErrReadOnly
	}

	br := bufio.NewReaderSize(r, snapshotBuffer)

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != memlogVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, memlogVersion)
	}

	key, err := readBytes(br)
	if err != nil {
		return err
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	loaded := newFeed(string(key))
	for i := uint64(0); i < count; i++ {
		var flags uint8
		if err := binary.Read(br, binary.LittleEndian, &flags); err != nil {
			return err
		}
		name, err := readBytes(br)
		if err != nil {
			return err
		}
		value, err := readBytes(br)
		if err != nil {
			return err
		}
		loaded.append(string(name), value, flags&flagTombstone != 0)
	}

	m.feed.mu.Lock()
	defer m.feed.mu.Unlock()
	m.feed.key = loaded.key
	m.feed.entries = loaded.entries
	m.feed.index = loaded.index

	log.Debugf("loaded %d entries into feed %s", count, loaded.key)
	return nil
}

// writeBytes writes a length prefixed byte slice
func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readBytes reads a length prefixed byte slice
func readBytes(r io.Reader) ([]byte, error) {
	var l uint32
	if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
		return nil, err
	}
	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
