package workspace

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScopesPrefixes(t *testing.T) {
	base := t.TempDir()
	r, err := NewResolver(base)
	require.NoError(t, err)

	private, err := r.Resolve("private:/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "private", "notes.txt"), private)

	shared, err := r.Resolve("shared:/team/plan.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(shared, filepath.Join(base, "shared")))

	public, err := r.Resolve("public:/site/index.html")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(public, filepath.Join(base, "public")))
}

func TestResolveDefaultsToPrivate(t *testing.T) {
	base := t.TempDir()
	r, err := NewResolver(base)
	require.NoError(t, err)

	resolved, err := r.Resolve("plain/path.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "private", "plain", "path.txt"), resolved)
}

func TestResolveRejectsEscapes(t *testing.T) {
	r, err := NewResolver(t.TempDir())
	require.NoError(t, err)

	for _, logical := range []string{
		"private:/../secret",
		"shared:/../../etc/passwd",
		"../outside",
	} {
		_, err := r.Resolve(logical)
		assert.Error(t, err, logical)
	}
}

func TestRootReturnsPrefixDirectory(t *testing.T) {
	base := t.TempDir()
	r, err := NewResolver(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "private"), r.Root(PrefixPrivate))
}
