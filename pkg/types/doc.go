/*
Package types defines the core data structures used throughout vexd.

It contains the domain model shared by every other package: CAS objects
(blob/tree/state), the history graph (State, Intent, Transition, Lane),
workspace metadata, the stat-cache entry that lets snapshot skip unchanged
files, embeddings for semantic search, and the diff/conflict records
produced by comparing two states.

# Design

Types here are plain data — no behavior beyond small predicates
(Intent.HasTag, Workspace.IsMain, Diff.ChangedPaths, CostRecord.Add).
Identifiers (state id, intent id, transition id, object hash) are typed as
plain strings rather than wrapper types: they cross process and JSON
boundaries constantly (CLI output, config files, the CAS key space) and a
wrapper type would only add friction at those edges.

States and transitions form a DAG via parent/from/to references, not
in-memory pointers — ownership belongs to the store (pkg/storage), and
these types are just the shapes records take once loaded.
*/
package types
