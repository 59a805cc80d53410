package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vexd.db"), filepath.Join(dir, "blobs"), 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestComputeHash_TypePrefixPreventsCrossKindCollision(t *testing.T) {
	payload := []byte("same bytes")
	blobHash := ComputeHash(types.KindBlob, payload)
	treeHash := ComputeHash(types.KindTree, payload)
	assert.NotEqual(t, blobHash, treeHash, "identical payloads of different kinds must hash differently")
}

func TestComputeHash_Deterministic(t *testing.T) {
	payload := []byte("hello world")
	assert.Equal(t, ComputeHash(types.KindBlob, payload), ComputeHash(types.KindBlob, payload))
}

func TestPutBlob_DedupesIdenticalPayload(t *testing.T) {
	s := openTestStore(t)

	var h1, h2 string
	err := s.Batch(func(tx *Tx) error {
		var err error
		h1, err = tx.PutBlob([]byte("same content"))
		return err
	})
	require.NoError(t, err)

	err = s.Batch(func(tx *Tx) error {
		var err error
		h2, err = tx.PutBlob([]byte("same content"))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)

	objectsByKind, _, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), objectsByKind[string(types.KindBlob)], "dedup should not create a second record")
}

func TestGetObject_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	var hash string
	err := s.Batch(func(tx *Tx) error {
		var err error
		hash, err = tx.PutBlob([]byte("round trip me"))
		return err
	})
	require.NoError(t, err)

	err = s.View(func(tx *Tx) error {
		obj, err := tx.GetObject(hash)
		require.NoError(t, err)
		assert.Equal(t, []byte("round trip me"), obj.Payload)
		assert.Equal(t, types.KindBlob, obj.Kind)
		return nil
	})
	require.NoError(t, err)
}

func TestGetObject_NotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.View(func(tx *Tx) error {
		_, err := tx.GetObject("deadbeef")
		return err
	})
	assert.Error(t, err)
}

func TestPutObject_OverMaxBlobSizeRejected(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vexd.db"), filepath.Join(dir, "blobs"), 8, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	err = s.Batch(func(tx *Tx) error {
		_, err := tx.PutBlob([]byte("this payload is far longer than 8 bytes"))
		return err
	})
	assert.Error(t, err)
}

func TestPutObject_LargePayloadGoesToFS(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vexd.db"), filepath.Join(dir, "blobs"), 0, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var hash string
	err = s.Batch(func(tx *Tx) error {
		var err error
		hash, err = tx.PutBlob([]byte("definitely over four bytes"))
		return err
	})
	require.NoError(t, err)

	_, bytesByKindLocation, err := s.Stats()
	require.NoError(t, err)
	assert.Positive(t, bytesByKindLocation[[2]string{string(types.KindBlob), string(types.LocationFS)}])

	err = s.View(func(tx *Tx) error {
		obj, err := tx.GetObject(hash)
		require.NoError(t, err)
		assert.Equal(t, []byte("definitely over four bytes"), obj.Payload)
		return nil
	})
	require.NoError(t, err)
}

func TestStoreTree_PermutationInvariant(t *testing.T) {
	s := openTestStore(t)

	a := []types.TreeEntry{
		{Name: "a.txt", Kind: types.TreeEntryBlob, Hash: "h1"},
		{Name: "b.txt", Kind: types.TreeEntryBlob, Hash: "h2"},
		{Name: "c.txt", Kind: types.TreeEntryBlob, Hash: "h3"},
	}
	b := []types.TreeEntry{a[2], a[0], a[1]}

	var hashA, hashB string
	err := s.Batch(func(tx *Tx) error {
		var err error
		hashA, err = tx.StoreTree(a)
		if err != nil {
			return err
		}
		hashB, err = tx.StoreTree(b)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB, "tree hash must not depend on entry order")
}

func TestStoreTree_DifferentContentDifferentHash(t *testing.T) {
	s := openTestStore(t)

	var hashA, hashB string
	err := s.Batch(func(tx *Tx) error {
		var err error
		hashA, err = tx.StoreTree([]types.TreeEntry{{Name: "a.txt", Kind: types.TreeEntryBlob, Hash: "h1"}})
		if err != nil {
			return err
		}
		hashB, err = tx.StoreTree([]types.TreeEntry{{Name: "a.txt", Kind: types.TreeEntryBlob, Hash: "h2"}})
		return err
	})
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestObjectExists(t *testing.T) {
	s := openTestStore(t)

	var hash string
	err := s.Batch(func(tx *Tx) error {
		var err error
		hash, err = tx.PutBlob([]byte("exists"))
		return err
	})
	require.NoError(t, err)

	err = s.View(func(tx *Tx) error {
		assert.True(t, tx.ObjectExists(hash))
		assert.False(t, tx.ObjectExists("not-a-real-hash"))
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteObjectRecord_LeavesFSFileUntilRemoveBlobFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vexd.db"), filepath.Join(dir, "blobs"), 0, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var hash string
	err = s.Batch(func(tx *Tx) error {
		var err error
		hash, err = tx.PutBlob([]byte("a payload over the fs threshold"))
		return err
	})
	require.NoError(t, err)

	var isFS bool
	err = s.Batch(func(tx *Tx) error {
		var derr error
		isFS, _, derr = tx.DeleteObjectRecord(hash)
		return derr
	})
	require.NoError(t, err)
	assert.True(t, isFS)

	// The DB row is gone, but the fs file survives until RemoveBlobFile.
	err = s.View(func(tx *Tx) error {
		assert.False(t, tx.ObjectExists(hash))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.RemoveBlobFile(hash))
}
