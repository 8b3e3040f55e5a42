package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCreatesFileExclusively(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rel, err := fs.Save("qr_codes/qr_1.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "qr_codes/qr_1.png", rel)
	assert.True(t, fs.Exists(rel))

	_, err = fs.Save("qr_codes/qr_1.png", []byte("other"))
	assert.ErrorIs(t, err, ErrExists)

	data, err := os.ReadFile(filepath.Join(fs.Root(), "qr_codes", "qr_1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestPathsCannotEscapeRoot(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../x.pdf", "/etc/passwd", "a/../../x", ""} {
		_, err := fs.Save(p, []byte("x"))
		assert.ErrorIs(t, err, ErrBadPath, p)
	}
}

func TestRemoveAndOpen(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rel, err := fs.Save("documents/a/po/po_1.pdf", []byte("%PDF"))
	require.NoError(t, err)

	rc, err := fs.Open(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF", string(body))

	require.NoError(t, fs.Remove(rel))
	assert.False(t, fs.Exists(rel))
	assert.NoError(t, fs.Remove(rel))

	_, err = fs.Open(rel)
	assert.ErrorIs(t, err, ErrNotFound)
}
