/*
Package storage provides bbolt-backed, content-addressed persistence for
vexd: the CAS object table (spec.md §4.1), the stat cache used to skip
re-hashing unchanged files during snapshot, and the history tables (state,
intent, transition, lane, embedding) that back the world-state manager.

# Architecture

vexd keeps one bbolt database file per repository (<repo>/.store/store.db)
plus a filesystem fanout tree for large blobs
(<repo>/.store/blobs/<hash[0:2]>/<hash[2:4]>/<hash>):

	┌──────────────────── STORE (bbolt) ───────────────────────┐
	│  bucket "objects"       hash -> {kind,size,location,...} │
	│  bucket "stat_cache"    path\x00mtime\x00size -> hash    │
	│  bucket "states"        state id -> State                │
	│  bucket "intents"       intent id -> Intent               │
	│  bucket "transitions"   transition id -> Transition       │
	│  bucket "lanes"         lane name -> Lane                 │
	│  bucket "embeddings"    intent id -> Embedding             │
	└────────────────────────────────────────────────────────────┘

bbolt gives single-writer, multi-reader MVCC transactions with durable
commit (fsync on every write transaction) — the in-process equivalent of
the "relational database file with WAL journalling plus a busy timeout"
durability spec.md §4.1 asks for. It does not support multiple OS
processes writing concurrently the way SQLite's WAL mode does; the
repository's instance lock (pkg/repository) is what actually enforces
single-writer-per-machine, so this substitution does not weaken the
spec's concurrency guarantees (see DESIGN.md).

# Batch scoping

batch() in spec.md §4.1 is modeled as Store.Batch, which opens one bbolt
write transaction and hands callers a *Tx. Because bbolt forbids nested
writer transactions, a *Tx's own Batch method just invokes the callback
against the same transaction — "nested entries pass through" — so code
that calls store.Batch(...) at the top level and tx.Batch(...) one level
down shares a single commit either way, via the Batcher interface.

# Read cache

Store wraps its Get path with a bounded hashicorp/golang-lru cache keyed
by hash, since diff and materialize re-read the same hot blobs/trees
repeatedly; a miss always falls through to bbolt (or the fs fanout), so
the cache is a pure optimization, never a correctness input.
*/
package storage
