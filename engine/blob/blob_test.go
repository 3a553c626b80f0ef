package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirFetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2025", "HB1366"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2025", "HB1366", "1366I.PDF"), []byte("pdf"), 0o644))

	d := NewDir(root)
	b, err := d.Fetch(context.Background(), "2025/HB1366/1366I.PDF")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), b)

	b, err = d.Fetch(context.Background(), "/2025/HB1366/1366I.PDF")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), b)
}

func TestDirFetchMissing(t *testing.T) {
	_, err := NewDir(t.TempDir()).Fetch(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanRef(t *testing.T) {
	for _, bad := range []string{"", "  ", "../etc/passwd", "a/../../b"} {
		_, err := cleanRef(bad)
		assert.ErrorIs(t, err, ErrBadRef, bad)
	}
	got, err := cleanRef("a/./b//c.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a/b/c.pdf", got)
}
