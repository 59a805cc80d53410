package storage

import "github.com/vexd/vexd/pkg/types"

// This file exposes the raw primitives pkg/repository's garbage collector
// composes into mark-and-sweep (spec.md §4.4 "Garbage collection"): the
// GC policy itself — what counts as live, what age makes a transition
// eligible — belongs to the repository layer, not the store.

// AllObjectHashes returns every hash in the objects bucket. tx must come
// from a consistent snapshot (store.View), so the mark phase's reachable
// set and the sweep phase's full set agree.
func (tx *Tx) AllObjectHashes() ([]string, error) {
	return tx.allObjectHashes()
}

// ObjectKind returns the kind of a stored object without loading its
// payload, and whether it exists at all.
func (tx *Tx) ObjectKind(hash string) (kind string, ok bool, err error) {
	k, ok, err := tx.objectKind(hash)
	return string(k), ok, err
}

// DeleteObject removes an object record (and its fs-fanout file, if any),
// returning the bytes reclaimed. A no-op, zero-byte return if hash is
// already absent. Must run inside a Batch.
func (tx *Tx) DeleteObject(hash string) (int64, error) {
	return tx.deleteObject(hash)
}

// DeleteObjectRecord removes only the object's database row, leaving any
// fs-fanout file in place, and reports whether one needs removing and how
// many bytes it held. GC's sweep uses this instead of DeleteObject so the
// fs payload is only unlinked after the surrounding batch has committed
// (spec.md §4.4: "FS deletion after DB commit ensures a crash mid-GC can
// leak FS files ... but never loses a reachable blob").
func (tx *Tx) DeleteObjectRecord(hash string) (isFS bool, size int64, err error) {
	bucket := tx.btx.Bucket(bucketObjects)
	raw := bucket.Get([]byte(hash))
	if raw == nil {
		return false, 0, nil
	}
	var rec objectRecord
	if err := decodeJSON(raw, &rec); err != nil {
		return false, 0, err
	}
	if err := bucket.Delete([]byte(hash)); err != nil {
		return false, 0, err
	}
	tx.store.cache.Remove(hash)
	return rec.Location == types.LocationFS, rec.Size, nil
}

// RemoveBlobFile unlinks hash's fs-fanout file, ignoring a missing file.
// Exported for GC, which calls this only after the batch that deleted the
// corresponding object record has committed.
func (s *Store) RemoveBlobFile(hash string) error {
	return s.removeBlobFile(hash)
}

// DeleteState removes a state record, used by GC sweep once it is no
// longer in the live set.
func (tx *Tx) DeleteState(id string) error {
	return tx.btx.Bucket(bucketStates).Delete([]byte(id))
}

// DeleteTransition removes a transition record.
func (tx *Tx) DeleteTransition(id string) error {
	return tx.btx.Bucket(bucketTransitions).Delete([]byte(id))
}

// DeleteIntent removes an intent record.
func (tx *Tx) DeleteIntent(id string) error {
	return tx.btx.Bucket(bucketIntents).Delete([]byte(id))
}

// ListIntentIDs returns every intent ID.
func (tx *Tx) ListIntentIDs() ([]string, error) {
	return listKeys(tx.btx.Bucket(bucketIntents))
}

// StatCacheEntry pairs a raw stat-cache key with its recorded blob hash,
// for GC's stale-entry sweep.
type StatCacheEntry struct {
	Key  []byte
	Hash string
}

// AllStatCacheEntries returns every stat-cache row, used to find entries
// whose blob_hash is about to be deleted.
func (tx *Tx) AllStatCacheEntries() ([]StatCacheEntry, error) {
	var out []StatCacheEntry
	err := tx.btx.Bucket(bucketStatCache).ForEach(func(k, v []byte) error {
		key := make([]byte, len(k))
		copy(key, k)
		out = append(out, StatCacheEntry{Key: key, Hash: string(v)})
		return nil
	})
	return out, err
}

// DeleteStatCacheKey removes one stat-cache row by its raw key.
func (tx *Tx) DeleteStatCacheKey(key []byte) error {
	return tx.btx.Bucket(bucketStatCache).Delete(key)
}
