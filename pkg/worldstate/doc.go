/*
Package worldstate builds world states from directories and records the
history graph that links them.

# Snapshot pipeline

Snapshot splits into three phases so filesystem hashing can run
concurrently while the CAS write stays a single commit:

 1. A read-only walk consults the stat cache per file and records cache
    misses.
 2. A bounded errgroup (golang.org/x/sync/errgroup) reads and hashes the
    cache-miss files concurrently — pure filesystem/CPU work with no
    store interaction.
 3. One store.Batch turns the walked tree into blob/tree objects and
    updates the stat cache, committing as a single transaction.

# History graph

States, intents, transitions, and lanes are the nodes and edges of an
immutable DAG (see pkg/types). Evaluate's stale-accept check — comparing
a transition's from_state against the lane's current head inside the same
write transaction that might advance it — is what lets concurrent accepts
linearize without an application-level lock: the loser sees a moved head
and becomes an auto-rejection rather than corrupting the lane.
*/
package worldstate
