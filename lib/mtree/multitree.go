package mtree

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("mtree")

// reserved namespaces of the base tree
const (
	entriesRoot = "/entries"
	parentsRoot = "/parents"
)

// MultiTree implements IMultiTree on top of a base tree.
type MultiTree struct {
	base tree.ITree
	opts Options

	readyOnce sync.Once
	readyErr  error

	// linkMu serializes link writes so the stamped position matches the log
	linkMu sync.Mutex

	links   *linkCache
	parents parentCache
	stats   stats
}

// New creates a multitree over base. The multitree is initialized by the first call to Ready.
func New(base tree.ITree, opts *Options) *MultiTree {
	return &MultiTree{
		base:  base,
		opts:  opts.withDefaults(),
		links: newLinkCache(),
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (m *MultiTree) Ready(ctx context.Context) error {
	m.readyOnce.Do(func() {
		m.readyErr = m.init(ctx)
		if m.readyErr != nil {
			log.Errorf("initializing multitree %s failed: %v", m.base.Key(), m.readyErr)
		}
	})
	return m.readyErr
}

// init readies the base tree and declares the parents
func (m *MultiTree) init(ctx context.Context) error {
	if err := m.base.Ready(ctx); err != nil {
		return err
	}
	if len(m.opts.Parents) == 0 {
		return nil
	}
	if m.opts.ReadOnly {
		return NewError(RetCReadOnlyTarget, "cannot declare parents on a read-only multitree")
	}
	if v := m.base.Version(); v > m.opts.Offset {
		return NewError(RetCInvalidParentAttachment,
			fmt.Sprintf("tree %s has %d entries beyond offset %d", m.base.Key(), v-m.opts.Offset, m.opts.Offset))
	}

	for i, p := range m.opts.Parents {
		name := parentName(i)
		if _, err := m.writeLink(ctx, name, codec.LinkRecord{
			Key:     p.Key,
			Version: p.Version,
			Path:    p.Path,
			Name:    name,
		}); err != nil {
			return fmt.Errorf("declare parent %d: %w", i, err)
		}
		log.Infof("declared parent %d of %s: %s@%d", i, m.base.Key(), p.Key, p.Version)
	}
	return nil
}

// ready waits for initialization and converts init failures into NotReady errors
func (m *MultiTree) ready(ctx context.Context) error {
	err := m.Ready(ctx)
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return wrapError(RetCNotReady, "multitree is not ready", err)
}

func (m *MultiTree) Key() string {
	return m.base.Key()
}

func (m *MultiTree) Version() uint64 {
	return m.base.Version()
}

// Stats returns the counters of this multitree.
func (m *MultiTree) Stats() Stats {
	return m.stats.snapshot()
}

func (m *MultiTree) Checkout(version uint64) (IMultiTree, error) {
	view, err := m.base.Checkout(version)
	if err != nil {
		return nil, err
	}
	return New(view, &Options{
		Offset:     m.opts.Offset,
		Factory:    m.opts.Factory,
		Codec:      m.opts.Codec,
		MissPolicy: m.opts.MissPolicy,
		ReadOnly:   true,
	}), nil
}

// --------------------------------------------------------------------------
// Base Tree Access
// --------------------------------------------------------------------------

func entryName(name string) string {
	return tree.Join(entriesRoot, name)
}

func parentName(i int) string {
	return tree.Join(parentsRoot, strconv.Itoa(i))
}

// linkAt returns the link record written at seq. ok is false for data entries.
func (m *MultiTree) linkAt(ctx context.Context, seq uint64) (link codec.LinkRecord, ok bool, err error) {
	if link, ok := m.links.lookup(seq); ok {
		m.stats.cacheHit()
		return link, true, nil
	}

	e, err := m.base.Entry(ctx, seq)
	if err != nil {
		return codec.LinkRecord{}, false, err
	}
	if e.Deleted {
		return codec.LinkRecord{}, false, nil
	}
	link, err = m.opts.Codec.DecodeLink(e.Value)
	if errors.Is(err, codec.ErrNotALink) {
		return codec.LinkRecord{}, false, nil
	} else if err != nil {
		return codec.LinkRecord{}, false, err
	}

	m.stats.linkDecodes.Add(1)
	link.Position = seq + 1
	m.links.store(seq, link)
	return link, true, nil
}

// writeLink appends a link record at the raw base tree name and returns its log position.
func (m *MultiTree) writeLink(ctx context.Context, name string, link codec.LinkRecord) (uint64, error) {
	m.linkMu.Lock()
	defer m.linkMu.Unlock()

	link.Position = m.base.Version() + 1
	b, err := m.opts.Codec.Encode(codec.LinkNode(link))
	if err != nil {
		return 0, err
	}
	seq, err := m.base.Put(ctx, name, b)
	if err != nil {
		return 0, err
	}
	if seq+1 != link.Position {
		// a concurrent data write landed between reading the version and appending
		log.Debugf("link %s stamped with position %d but written at %d", name, link.Position, seq+1)
		link.Position = seq + 1
	}
	m.links.store(seq, link)
	return link.Position, nil
}
