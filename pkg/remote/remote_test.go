package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/vexerrors"
)

func TestFSCache_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFSCache(t.TempDir())

	require.NoError(t, c.Put(ctx, "abcdef", []byte("payload")))

	got, err := c.Get(ctx, "abcdef")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestFSCache_GetMissingIsNotFound(t *testing.T) {
	c := NewFSCache(t.TempDir())
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, vexerrors.ErrNotFound)
}

func TestFSCache_Exists(t *testing.T) {
	ctx := context.Background()
	c := NewFSCache(t.TempDir())

	ok, err := c.Exists(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "h1", []byte("x")))
	ok, err = c.Exists(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFSCache_ListReturnsAllStoredHashes(t *testing.T) {
	ctx := context.Background()
	c := NewFSCache(t.TempDir())
	require.NoError(t, c.Put(ctx, "hash-one", []byte("a")))
	require.NoError(t, c.Put(ctx, "hash-two", []byte("b")))

	hashes, err := c.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hash-one", "hash-two"}, hashes)
}

func TestFSCache_DeleteRemovesEntry(t *testing.T) {
	ctx := context.Background()
	c := NewFSCache(t.TempDir())
	require.NoError(t, c.Put(ctx, "gone", []byte("x")))
	require.NoError(t, c.Delete(ctx, "gone"))

	ok, err := c.Exists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSCache_DeleteMissingIsNotAnError(t *testing.T) {
	c := NewFSCache(t.TempDir())
	assert.NoError(t, c.Delete(context.Background(), "never-existed"))
}
