package storage

import (
	"fmt"

	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// objectRecord is the bucket "objects" value shape: everything about an
// object except its payload, which lives either inline in this record or
// in the fs fanout (spec.md §3 "Object").
type objectRecord struct {
	Kind     types.ObjectKind `json:"kind"`
	Size     int64            `json:"size"`
	Location types.Location   `json:"location"`
	Inline   []byte           `json:"inline,omitempty"`
}

// PutBlob stores payload under its content hash, returning the hash. If an
// object with that hash already exists, Put is a no-op dedup hit — the
// existing record is left untouched and no size/location checks re-run.
func (tx *Tx) PutBlob(payload []byte) (string, error) {
	return tx.putObject(types.KindBlob, payload)
}

// PutObject stores payload as an object of the given kind, returning its
// hash. Exported for pkg/worldstate's state records, which must be stored
// as kind=state rather than kind=blob; tree construction goes through
// StoreTree instead, which canonicalizes entries before calling this.
func (tx *Tx) PutObject(kind types.ObjectKind, payload []byte) (string, error) {
	return tx.putObject(kind, payload)
}

func (tx *Tx) putObject(kind types.ObjectKind, payload []byte) (string, error) {
	hash := ComputeHash(kind, payload)

	bucket := tx.btx.Bucket(bucketObjects)
	if existing := bucket.Get([]byte(hash)); existing != nil {
		return hash, nil
	}

	size := int64(len(payload))
	if size > tx.store.maxBlobSize {
		return "", fmt.Errorf("%w: object %s size %d exceeds max_blob_size %d", vexerrors.ErrLimitExceeded, hash, size, tx.store.maxBlobSize)
	}

	rec := objectRecord{Kind: kind, Size: size}
	if kind == types.KindBlob && tx.store.fsThreshold > 0 && size > tx.store.fsThreshold {
		rec.Location = types.LocationFS
		if err := tx.store.writeBlobFile(hash, payload); err != nil {
			return "", fmt.Errorf("%w: %v", vexerrors.ErrIOFailure, err)
		}
	} else {
		rec.Location = types.LocationInline
		rec.Inline = payload
	}

	encoded, err := serialize.CanonicalJSON(rec)
	if err != nil {
		return "", fmt.Errorf("encode object record %s: %w", hash, err)
	}
	if err := bucket.Put([]byte(hash), encoded); err != nil {
		// Roll back the fs write so a failed record insert never leaves an
		// orphaned fanout file with no corresponding object record.
		if rec.Location == types.LocationFS {
			_ = tx.store.removeBlobFile(hash)
		}
		return "", fmt.Errorf("persist object record %s: %w", hash, err)
	}

	tx.store.cache.Add(hash, cachedObject{kind: string(kind), payload: payload})
	return hash, nil
}

// GetObject loads the object stored under hash, reading its payload from
// wherever it actually lives.
func (tx *Tx) GetObject(hash string) (types.Object, error) {
	if cached, ok := tx.store.cache.Get(hash); ok {
		return types.Object{
			Hash:     hash,
			Kind:     types.ObjectKind(cached.kind),
			Size:     int64(len(cached.payload)),
			Payload:  cached.payload,
			Location: types.LocationInline,
		}, nil
	}

	bucket := tx.btx.Bucket(bucketObjects)
	raw := bucket.Get([]byte(hash))
	if raw == nil {
		return types.Object{}, fmt.Errorf("%w: object %s", vexerrors.ErrNotFound, hash)
	}

	var rec objectRecord
	if err := decodeJSON(raw, &rec); err != nil {
		return types.Object{}, fmt.Errorf("decode object record %s: %w", hash, err)
	}

	payload := rec.Inline
	if rec.Location == types.LocationFS {
		data, err := tx.store.readBlobFile(hash)
		if err != nil {
			return types.Object{}, fmt.Errorf("%w: %v", vexerrors.ErrIOFailure, err)
		}
		payload = data
	}

	tx.store.cache.Add(hash, cachedObject{kind: string(rec.Kind), payload: payload})

	return types.Object{
		Hash:     hash,
		Kind:     rec.Kind,
		Size:     rec.Size,
		Payload:  payload,
		Location: rec.Location,
	}, nil
}

// ObjectExists reports whether hash is present without reading its payload.
func (tx *Tx) ObjectExists(hash string) bool {
	if _, ok := tx.store.cache.Get(hash); ok {
		return true
	}
	bucket := tx.btx.Bucket(bucketObjects)
	return bucket.Get([]byte(hash)) != nil
}

// objectKind returns the kind of a stored object without loading its
// payload; it backs the exported ObjectKind.
func (tx *Tx) objectKind(hash string) (types.ObjectKind, bool, error) {
	bucket := tx.btx.Bucket(bucketObjects)
	raw := bucket.Get([]byte(hash))
	if raw == nil {
		return "", false, nil
	}
	var rec objectRecord
	if err := decodeJSON(raw, &rec); err != nil {
		return "", false, fmt.Errorf("decode object record %s: %w", hash, err)
	}
	return rec.Kind, true, nil
}

// deleteObject removes an object record and its fs-fanout file (if any).
// Used only by GC sweep, always inside a Batch.
func (tx *Tx) deleteObject(hash string) (int64, error) {
	bucket := tx.btx.Bucket(bucketObjects)
	raw := bucket.Get([]byte(hash))
	if raw == nil {
		return 0, nil
	}
	var rec objectRecord
	if err := decodeJSON(raw, &rec); err != nil {
		return 0, fmt.Errorf("decode object record %s: %w", hash, err)
	}
	if err := bucket.Delete([]byte(hash)); err != nil {
		return 0, fmt.Errorf("delete object record %s: %w", hash, err)
	}
	if rec.Location == types.LocationFS {
		if err := tx.store.removeBlobFile(hash); err != nil {
			return 0, err
		}
	}
	tx.store.cache.Remove(hash)
	return rec.Size, nil
}

// Stats reports object counts and stored bytes broken down by kind and
// location, feeding pkg/metrics.Collector and `vexctl status`.
func (s *Store) Stats() (objectsByKind map[string]int64, bytesByKindLocation map[[2]string]int64, err error) {
	objectsByKind = make(map[string]int64)
	bytesByKindLocation = make(map[[2]string]int64)

	err = s.View(func(tx *Tx) error {
		bucket := tx.btx.Bucket(bucketObjects)
		return bucket.ForEach(func(_, raw []byte) error {
			var rec objectRecord
			if err := decodeJSON(raw, &rec); err != nil {
				return err
			}
			objectsByKind[string(rec.Kind)]++
			bytesByKindLocation[[2]string{string(rec.Kind), string(rec.Location)}] += rec.Size
			return nil
		})
	})
	return objectsByKind, bytesByKindLocation, err
}

// allObjectHashes returns every hash in the objects bucket, used by GC's
// sweep phase to compute the unreachable set. view must be a *Tx from a
// consistent snapshot (spec.md §4.4 "Garbage collection").
func (tx *Tx) allObjectHashes() ([]string, error) {
	bucket := tx.btx.Bucket(bucketObjects)
	var hashes []string
	err := bucket.ForEach(func(k, _ []byte) error {
		hashes = append(hashes, string(k))
		return nil
	})
	return hashes, err
}
