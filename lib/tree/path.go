package tree

import (
	"path"
	"strings"
)

// Clean normalizes a name to an absolute slash separated path without a trailing slash.
func Clean(name string) string {
	return path.Clean("/" + name)
}

// Join joins name segments and normalizes the result.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}

// Under returns the prefix every strict descendant of name starts with.
func Under(name string) string {
	name = Clean(name)
	if name == "/" {
		return name
	}
	return name + "/"
}

// IsBelow reports whether name strictly extends parent.
func IsBelow(name, parent string) bool {
	name, parent = Clean(name), Clean(parent)
	return name != parent && strings.HasPrefix(name, Under(parent))
}

// Prefixes returns all non-root prefixes of name, root-most first (including name itself).
func Prefixes(name string) []string {
	name = Clean(name)
	if name == "/" {
		return nil
	}
	parts := strings.Split(name[1:], "/")
	prefixes := make([]string, 0, len(parts))
	curr := ""
	for _, part := range parts {
		curr += "/" + part
		prefixes = append(prefixes, curr)
	}
	return prefixes
}

// Child returns the first segment of name below parent, or "" if name is not below parent.
func Child(name, parent string) string {
	if !IsBelow(name, parent) {
		return ""
	}
	rest := Clean(name)[len(Under(parent)):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
