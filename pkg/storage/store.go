package storage

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketObjects     = []byte("objects")
	bucketStatCache   = []byte("stat_cache")
	bucketStates      = []byte("states")
	bucketIntents     = []byte("intents")
	bucketTransitions = []byte("transitions")
	bucketLanes       = []byte("lanes")
	bucketEmbeddings  = []byte("embeddings")

	allBuckets = [][]byte{
		bucketObjects, bucketStatCache, bucketStates, bucketIntents,
		bucketTransitions, bucketLanes, bucketEmbeddings,
	}
)

// DefaultMaxBlobSize is used when a repository's config leaves
// max_blob_size at zero (spec.md §6: "0 = default").
const DefaultMaxBlobSize = 256 << 20 // 256 MiB

// DefaultFSThreshold is the size above which a blob payload is written to
// the filesystem fanout instead of stored inline.
const DefaultFSThreshold = 1 << 20 // 1 MiB

// readCacheSize bounds the number of hot objects kept in memory.
const readCacheSize = 1024

// Store is the bbolt-backed content-addressed store plus history tables.
// One Store should be used from one goroutine/process at a time; the
// underlying bbolt file tolerates concurrent readers from other processes
// but only a single writer (spec.md §4.1 "Concurrency").
type Store struct {
	db          *bolt.DB
	blobsDir    string
	maxBlobSize int64
	fsThreshold int64
	cache       *lru.Cache[string, cachedObject]
}

type cachedObject struct {
	kind    string
	payload []byte
}

// Open opens (creating if necessary) the bbolt database at dbPath and
// ensures every bucket exists. blobsDir is the root of the filesystem
// fanout tree for large blobs.
func Open(dbPath, blobsDir string, maxBlobSize, fsThreshold int64) (*Store, error) {
	if maxBlobSize <= 0 {
		maxBlobSize = DefaultMaxBlobSize
	}
	if fsThreshold < 0 {
		fsThreshold = DefaultFSThreshold
	}

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open store db %q: %w", dbPath, err)
	}

	err = db.Update(func(btx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := btx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cache, err := lru.New[string, cachedObject](readCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create read cache: %w", err)
	}

	return &Store{
		db:          db,
		blobsDir:    blobsDir,
		maxBlobSize: maxBlobSize,
		fsThreshold: fsThreshold,
		cache:       cache,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) fanoutPath(hash string) string {
	if len(hash) < 4 {
		return filepath.Join(s.blobsDir, hash)
	}
	return filepath.Join(s.blobsDir, hash[0:2], hash[2:4], hash)
}

// Batcher is implemented by both *Store (opens a fresh write transaction)
// and *Tx (reuses its own transaction) so callers can compose batches
// without worrying about whether they are already inside one.
type Batcher interface {
	Batch(fn func(tx *Tx) error) error
}

// Batch runs fn inside a single bbolt write transaction, committing on
// success and rolling back if fn returns an error or panics.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		tx := &Tx{btx: btx, store: s}
		return fn(tx)
	})
}

// View runs fn inside a read-only bbolt transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		tx := &Tx{btx: btx, store: s}
		return fn(tx)
	})
}

// Tx is a scoped transaction handle, readable or writable depending on
// how it was opened. All CAS and history operations hang off it.
type Tx struct {
	btx   *bolt.Tx
	store *Store
}

// Batch on a *Tx runs fn against the same underlying transaction — the
// "nested entries pass through" rule from spec.md §4.1, since bbolt does
// not support nested writer transactions.
func (tx *Tx) Batch(fn func(tx *Tx) error) error {
	return fn(tx)
}
