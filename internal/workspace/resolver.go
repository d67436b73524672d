// Package workspace maps the logical path prefixes tools speak
// (private:/, shared:/, public:/) onto scoped directories. The engine core
// never touches storage directly; tools go through a Resolver.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Logical prefixes.
const (
	PrefixPrivate = "private:/"
	PrefixShared  = "shared:/"
	PrefixPublic  = "public:/"
)

// Resolver scopes logical paths under a base directory.
type Resolver struct {
	roots map[string]string
}

// NewResolver creates the prefix directories under baseDir.
func NewResolver(baseDir string) (*Resolver, error) {
	roots := map[string]string{
		PrefixPrivate: filepath.Join(baseDir, "private"),
		PrefixShared:  filepath.Join(baseDir, "shared"),
		PrefixPublic:  filepath.Join(baseDir, "public"),
	}
	for _, dir := range roots {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace directory: %w", err)
		}
	}
	return &Resolver{roots: roots}, nil
}

// Resolve turns a logical path into an absolute filesystem path, rejecting
// anything that would escape its scope. Paths without a prefix resolve
// under private:/.
func (r *Resolver) Resolve(logical string) (string, error) {
	prefix := PrefixPrivate
	rest := logical
	for p := range r.roots {
		if strings.HasPrefix(logical, p) {
			prefix = p
			rest = strings.TrimPrefix(logical, p)
			break
		}
	}

	root := r.roots[prefix]
	resolved := filepath.Join(root, filepath.FromSlash(rest))
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes its %s scope", logical, prefix)
	}
	return resolved, nil
}

// Root returns the directory a prefix resolves to.
func (r *Resolver) Root(prefix string) string {
	return r.roots[prefix]
}
