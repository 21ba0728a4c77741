package tree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ValentinKolb/mtree/cmd/util"
	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/common"
	"github.com/ValentinKolb/mtree/lib/mtree"
	"github.com/ValentinKolb/mtree/lib/registry"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Creates a new tree and prints its key",
		Args:  cobra.NoArgs,
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			specs, err := cmd.Flags().GetStringArray("parent")
			if err != nil {
				return err
			}
			parents := make([]mtree.Target, 0, len(specs))
			for _, s := range specs {
				p, err := util.ParseTarget(s)
				if err != nil {
					return fmt.Errorf("parent %q: %w", s, err)
				}
				parents = append(parents, p)
			}

			m, err := reg.Create(ctx, parents...)
			if err != nil {
				return err
			}
			fmt.Println(m.Key())
			return nil
		}),
	}
	putCmd = &cobra.Command{
		Use:   "put [key] [path] [value]",
		Short: "Writes a value at a path",
		Args:  cobra.ExactArgs(3),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := reg.Open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			if err := m.Put(ctx, args[1], []byte(args[2])); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		}),
	}
	getCmd = &cobra.Command{
		Use:   "get [key] [path]",
		Short: "Reads the value at a path (through links and parents)",
		Args:  cobra.ExactArgs(2),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := open(ctx, cmd, reg, args[0])
			if err != nil {
				return err
			}
			res, err := m.Get(ctx, args[1])
			if err != nil {
				return err
			}
			fmt.Print(formatResult(args[1], res))
			return nil
		}),
	}
	delCmd = &cobra.Command{
		Use:   "del [key] [path]",
		Short: "Deletes the value at a path",
		Args:  cobra.ExactArgs(2),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := reg.Open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			if err := m.Delete(ctx, args[1]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		}),
	}
	listCmd = &cobra.Command{
		Use:   "list [key] [path]",
		Short: "Lists the children of a path (union of the tree and its parents)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := open(ctx, cmd, reg, args[0])
			if err != nil {
				return err
			}
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			children, err := m.List(ctx, path)
			if err != nil {
				return err
			}
			for _, c := range children {
				fmt.Println(c)
			}
			return nil
		}),
	}
	linkCmd = &cobra.Command{
		Use:   "link [key] [name] [target]",
		Short: "Mounts a target tree (KEY[@VERSION][:PATH]) at a name",
		Args:  cobra.ExactArgs(3),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			target, err := util.ParseTarget(args[2])
			if err != nil {
				return err
			}
			m, err := reg.Open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			if err := m.Link(ctx, args[1], target); err != nil {
				return err
			}
			fmt.Println("link successfully")
			return nil
		}),
	}
	unlinkCmd = &cobra.Command{
		Use:   "unlink [key] [name]",
		Short: "Removes the link at a name",
		Args:  cobra.ExactArgs(2),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := reg.Open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			if err := m.Unlink(ctx, args[1]); err != nil {
				return err
			}
			fmt.Println("unlink successfully")
			return nil
		}),
	}
	infoCmd = &cobra.Command{
		Use:   "info [key]",
		Short: "Prints the key and the current version of a tree and the configuration it is opened with",
		Args:  cobra.ExactArgs(1),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := reg.Open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			fmt.Print(formatInfo(m, util.GetConfig()))
			return nil
		}),
	}
	statsCmd = &cobra.Command{
		Use:   "stats [key]",
		Short: "Walks the whole namespace of a tree and prints its statistics and the engine metrics",
		Args:  cobra.ExactArgs(1),
		RunE: withRegistry(func(ctx context.Context, cmd *cobra.Command, args []string, reg *registry.Registry) error {
			m, err := reg.Open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			var s walkStats
			if err := walk(ctx, m, "/", &s); err != nil {
				return err
			}
			fmt.Printf("paths=%d, values=%d, links=%d, conflicts=%d\n", s.paths, s.values, s.links, s.conflicts)
			metrics.WritePrometheus(os.Stdout, false)
			return nil
		}),
	}
)

// open returns the tree for key at the version given by the --version flag
func open(ctx context.Context, cmd *cobra.Command, reg *registry.Registry, key string) (mtree.IMultiTree, error) {
	version, err := cmd.Flags().GetUint64("version")
	if err != nil {
		return nil, err
	}
	return reg.Open(ctx, key, version)
}

// formatInfo renders the info command output
func formatInfo(m mtree.IMultiTree, config *common.Config) string {
	return fmt.Sprintf("key=%s, version=%d\n%s", m.Key(), m.Version(), config.String())
}

func formatLink(l *codec.LinkRecord) string {
	return fmt.Sprintf("link -> %s (position %d)", util.FormatTarget(l.Key, l.Version, l.Path), l.Position)
}

// formatResult renders a get result in the style of the kv commands
func formatResult(path string, res mtree.GetResult) string {
	var sb strings.Builder
	switch {
	case !res.Found:
		sb.WriteString(fmt.Sprintf("path=%s, found=false\n", path))
	case res.IsConflict():
		sb.WriteString(fmt.Sprintf("path=%s, found=true, conflicts=%d\n", path, len(res.Conflicts)))
		for _, c := range res.Conflicts {
			if c.Link != nil {
				sb.WriteString(fmt.Sprintf("  parent=%d, key=%s, %s\n", c.Parent, c.Key, formatLink(c.Link)))
			} else {
				sb.WriteString(fmt.Sprintf("  parent=%d, key=%s, value=%s\n", c.Parent, c.Key, c.Value))
			}
		}
	case res.Link != nil:
		sb.WriteString(fmt.Sprintf("path=%s, found=true, %s\n", path, formatLink(res.Link)))
	default:
		sb.WriteString(fmt.Sprintf("path=%s, found=true, value=%s\n", path, res.Value))
	}
	return sb.String()
}

type walkStats struct {
	paths, values, links, conflicts int
}

// walk visits every path below name depth first. Mount points are not descended into
// so cyclic links terminate.
func walk(ctx context.Context, m mtree.IMultiTree, name string, s *walkStats) error {
	children, err := m.List(ctx, name)
	if errors.Is(err, mtree.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	sort.Strings(children)

	for _, c := range children {
		child := strings.TrimSuffix(name, "/") + "/" + c
		s.paths++

		res, err := m.Get(ctx, child)
		switch {
		case errors.Is(err, mtree.ErrNotFound):
		case err != nil:
			return err
		case res.IsConflict():
			s.conflicts++
		case res.Link != nil:
			s.links++
			continue
		case res.Found:
			s.values++
		}

		if err := walk(ctx, m, child, s); err != nil {
			return err
		}
	}
	return nil
}
