package media

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRemove(t *testing.T) {
	d := NewDir(t.TempDir())

	rel, err := d.Save("image/png", strings.NewReader("data"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, Subdir+"/"))
	assert.Equal(t, ".png", filepath.Ext(rel))

	b, err := os.ReadFile(filepath.Join(d.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	require.NoError(t, d.Remove(rel))
	_, err = os.Stat(filepath.Join(d.Root(), filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, d.Remove(rel), "removing a missing file is not an error")
}

func TestSaveNamesFilesByContentType(t *testing.T) {
	d := NewDir(t.TempDir())

	rel, err := d.Save("image/gif", strings.NewReader("GIF89a<script></script>"))
	require.NoError(t, err)
	assert.Equal(t, ".gif", filepath.Ext(rel))

	_, err = d.Save("text/html; charset=utf-8", strings.NewReader("<html>"))
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = d.Save("image/svg+xml", strings.NewReader("<svg/>"))
	assert.ErrorIs(t, err, ErrUnsupported)

	entries, err := os.ReadDir(filepath.Join(d.Root(), Subdir))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected uploads leave nothing behind")
}

func TestRemoveRejectsPathsOutsideRoot(t *testing.T) {
	d := NewDir(t.TempDir())
	assert.ErrorIs(t, d.Remove("../etc/passwd"), ErrBadPath)
	assert.ErrorIs(t, d.Remove("post_images/../../x"), ErrBadPath)
	assert.ErrorIs(t, d.Remove("other/x.png"), ErrBadPath)
}

func TestSniff(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 600)...)
	ctype, r, err := Sniff(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)

	replay, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, png, replay, "the sniffed head is replayed")

	ctype, _, err = Sniff(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", ctype)
}
