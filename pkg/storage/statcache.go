package storage

import "fmt"

// statCacheKey builds the bucket key for a (path, mtime, size) tuple — the
// snapshot fast path's lookup key (spec.md §4.2 "Snapshot" stat cache).
func statCacheKey(path string, mtimeNS, size int64) []byte {
	return []byte(fmt.Sprintf("%s\x00%d\x00%d", path, mtimeNS, size))
}

// StatCacheLookup returns the previously-recorded blob hash for a file
// whose path/mtime/size tuple matches exactly, or "" if there is no entry
// — a miss never means anything is wrong, just that the file must be
// re-hashed.
func (tx *Tx) StatCacheLookup(path string, mtimeNS, size int64) (hash string, ok bool) {
	bucket := tx.btx.Bucket(bucketStatCache)
	v := bucket.Get(statCacheKey(path, mtimeNS, size))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// StatCachePut records the blob hash observed for a file's current
// (path, mtime, size) tuple.
func (tx *Tx) StatCachePut(path string, mtimeNS, size int64, hash string) error {
	bucket := tx.btx.Bucket(bucketStatCache)
	return bucket.Put(statCacheKey(path, mtimeNS, size), []byte(hash))
}

// StatCacheClear drops every entry, for when the cache is suspected stale
// after an out-of-band filesystem edit.
func (tx *Tx) StatCacheClear() error {
	bucket := tx.btx.Bucket(bucketStatCache)
	var keys [][]byte
	if err := bucket.ForEach(func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
