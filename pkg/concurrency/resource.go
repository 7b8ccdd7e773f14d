package concurrency

import (
	"strings"

	"mglock/pkg/config"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/errors"
)

// A Resource names a node in the lock hierarchy (database, table, page,
// record) by its path from the root, e.g. "db/orders/page7/rec42".
// Resources are comparable and can be used as map keys.
type Resource struct {
	path string
}

// NewResource builds a resource from its path names, root first.
func NewResource(names ...string) (Resource, error) {
	if len(names) == 0 || len(names) > config.MaxHierarchyDepth {
		return Resource{}, errors.Wrapf(ErrInvalidArgument,
			"resource depth %d not in [1, %d]", len(names), config.MaxHierarchyDepth)
	}
	for _, n := range names {
		if n == "" || strings.Contains(n, config.ResourceSeparator) || strings.ContainsAny(n, " \t\n") {
			return Resource{}, errors.Wrapf(ErrInvalidArgument, "bad resource name %q", n)
		}
	}
	return Resource{path: strings.Join(names, config.ResourceSeparator)}, nil
}

// ParseResource parses a path such as "db/orders/page7".
func ParseResource(s string) (Resource, error) {
	return NewResource(strings.Split(s, config.ResourceSeparator)...)
}

// IsZero reports whether r is the zero Resource.
func (r Resource) IsZero() bool {
	return r.path == ""
}

// Names returns the path names, root first.
func (r Resource) Names() []string {
	if r.IsZero() {
		return nil
	}
	return strings.Split(r.path, config.ResourceSeparator)
}

// Name returns the last path name.
func (r Resource) Name() string {
	i := strings.LastIndex(r.path, config.ResourceSeparator)
	return r.path[i+1:]
}

// Depth is 1 for a database and grows by one per level.
func (r Resource) Depth() int {
	if r.IsZero() {
		return 0
	}
	return strings.Count(r.path, config.ResourceSeparator) + 1
}

// Level returns the name of r's hierarchy level.
func (r Resource) Level() string {
	d := r.Depth()
	if d == 0 {
		return ""
	}
	return config.LevelNames[d-1]
}

// Parent returns the enclosing resource; ok is false for a root.
func (r Resource) Parent() (parent Resource, ok bool) {
	i := strings.LastIndex(r.path, config.ResourceSeparator)
	if i < 0 {
		return Resource{}, false
	}
	return Resource{path: r.path[:i]}, true
}

// Child returns the resource called name directly below r.
func (r Resource) Child(name string) (Resource, error) {
	return NewResource(append(r.Names(), name)...)
}

// Ancestors returns every proper ancestor of r, root first.
func (r Resource) Ancestors() []Resource {
	var out []Resource
	for p, ok := r.Parent(); ok; p, ok = p.Parent() {
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// IsDescendantOf reports whether r lies strictly below other.
func (r Resource) IsDescendantOf(other Resource) bool {
	if other.IsZero() || len(r.path) <= len(other.path) {
		return false
	}
	return strings.HasPrefix(r.path, other.path+config.ResourceSeparator)
}

// Hash returns a stable fingerprint of r, suitable for striping lock tables.
func (r Resource) Hash() uint64 {
	return xxhash.Sum64String(r.path)
}

func (r Resource) String() string {
	return r.path
}
