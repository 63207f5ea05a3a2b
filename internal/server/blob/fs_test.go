package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophtasks/internal/filex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)
	return s
}

func TestFSStore_RoundTrip(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	key := "task-attachments/2025/01/02/id/report.pdf"

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, key, []byte("%PDF-1.4"), "application/pdf"))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	_, err = os.Stat(filepath.Join(s.Root(), filepath.FromSlash(key)))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, key), ErrNotFound)
}

func TestFSStore_Overwrite(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k/a.pdf", []byte("one"), ""))
	require.NoError(t, s.Put(ctx, "k/a.pdf", []byte("two"), ""))

	data, err := s.Get(ctx, "k/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "../escape.pdf", []byte("x"), ""), filex.ErrOutsideRoot)
	_, err := s.Get(ctx, "/etc/passwd")
	assert.ErrorIs(t, err, filex.ErrOutsideRoot)
	_, err = s.Exists(ctx, "")
	assert.ErrorIs(t, err, filex.ErrOutsideRoot)
	assert.ErrorIs(t, s.Delete(ctx, "a/../../b"), filex.ErrOutsideRoot)
}

func TestFSStore_DirectoryIsNotAnObject(t *testing.T) {
	s := newFSStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "dir/a.pdf", []byte("x"), ""))

	ok, err := s.Exists(ctx, "dir")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSStore_CanceledContext(t *testing.T) {
	s := newFSStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Put(ctx, "k/a.pdf", []byte("x"), ""), context.Canceled)
	_, err := s.Get(ctx, "k/a.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
