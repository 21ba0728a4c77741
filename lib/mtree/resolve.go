package mtree

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/tree"
)

// mounts returns the live link records covering name, root-most first. A link covers
// the paths strictly below its name, and with inclusive set also its name itself.
func (m *MultiTree) mounts(ctx context.Context, name string, inclusive bool) ([]codec.LinkRecord, error) {
	seqs, err := m.base.Path(ctx, entryName(name))
	if errors.Is(err, tree.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var links []codec.LinkRecord
	for _, seq := range seqs {
		link, ok, err := m.linkAt(ctx, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		mount := tree.Clean(link.Name)
		if tree.IsBelow(name, mount) || (inclusive && name == mount) {
			links = append(links, link)
		}
	}
	return links, nil
}

// remainder translates name into the target of link
func remainder(link codec.LinkRecord, name string) string {
	return tree.Join(link.Path, name[len(tree.Clean(link.Name)):])
}

// resolve returns the target that owns name for reads, or nil if name is local.
// The root-most link wins, so a link shadows everything registered beneath it.
func (m *MultiTree) resolve(ctx context.Context, name string, inclusive bool) (*resolved, error) {
	links, err := m.mounts(ctx, name, inclusive)
	if err != nil || len(links) == 0 {
		return nil, err
	}
	return m.inflate(ctx, links[0], name)
}

// resolveWrite returns the target that owns name for writes, or nil if name is local.
// Like reads, writes go to the root-most link; links beneath it are shadowed.
func (m *MultiTree) resolveWrite(ctx context.Context, name string) (*resolved, error) {
	links, err := m.mounts(ctx, name, false)
	if err != nil || len(links) == 0 {
		return nil, err
	}
	// the path index holds one entry per prefix, so two owners mean a corrupt index
	if len(links) > 1 && tree.Clean(links[0].Name) == tree.Clean(links[1].Name) {
		return nil, NewError(RetCMultipleTargets,
			fmt.Sprintf("%s is covered by %d links mounted at %s", name, len(links), links[0].Name))
	}
	link := links[0]
	if link.Pinned() {
		return nil, NewError(RetCReadOnlyTarget,
			fmt.Sprintf("%s is below %s which is pinned to %s@%d", name, link.Name, link.Key, link.Version))
	}
	return m.inflate(ctx, link, name)
}

func (m *MultiTree) inflate(ctx context.Context, link codec.LinkRecord, name string) (*resolved, error) {
	t, err := m.links.inflate(ctx, m.opts.Factory, link, &m.stats)
	if err != nil {
		return nil, err
	}
	return &resolved{link: link, tree: t, path: remainder(link, name)}, nil
}
