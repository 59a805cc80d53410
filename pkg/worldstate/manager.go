// Package worldstate builds world states from directories, records the
// transition/lane history graph, and serves diff/trace/materialize
// queries over it (spec.md §4.2 "WorldStateManager").
package worldstate

import (
	"github.com/vexd/vexd/pkg/storage"
)

// storeDirName is the reserved directory name materialize/update must
// never write into or delete from when targeting the main workspace
// (spec.md §9 "Materialization into the repository root").
const storeDirName = ".store"

// DefaultMaxTreeDepth bounds directory recursion when a repository's
// config leaves max_tree_depth at zero.
const DefaultMaxTreeDepth = 100

// Manager is the world-state engine: it owns no filesystem state beyond
// the CAS it is handed, and is safe to share across goroutines only to
// the extent *storage.Store is (one writer at a time, see pkg/storage).
type Manager struct {
	store        *storage.Store
	maxTreeDepth int
}

// New constructs a Manager over store. maxTreeDepth <= 0 means "use
// DefaultMaxTreeDepth" (spec.md §6 "max_tree_depth ... 0 = default").
func New(store *storage.Store, maxTreeDepth int) *Manager {
	if maxTreeDepth <= 0 {
		maxTreeDepth = DefaultMaxTreeDepth
	}
	return &Manager{store: store, maxTreeDepth: maxTreeDepth}
}

// Store returns the underlying content store, for callers (Repository,
// WorkspaceManager) that need to batch world-state and other writes in a
// single transaction.
func (m *Manager) Store() *storage.Store {
	return m.store
}
