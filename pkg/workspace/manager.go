// Package workspace manages isolated working directories backing lanes:
// creation, atomic advisory locking, dirty-marker crash recovery, and
// incremental updates by tree diff (spec.md §4.3 "WorkspaceManager").
package workspace

import (
	"path/filepath"
	"time"

	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/worldstate"
)

// DefaultLockMaxAge is how old an unreleased lock must be before it is
// considered stale and eligible for reclaim (spec.md §4.3 "Locking").
const DefaultLockMaxAge = 4 * time.Hour

// DirtyMarkerName is left in a workspace directory while a materialize or
// update is in flight; its presence after a crash signals incomplete work.
const DirtyMarkerName = ".store_materializing"

// Manager creates, locks, and updates workspaces rooted at a repository.
type Manager struct {
	repoRoot string // the repository root; main workspace == repoRoot
	storeDir string // <repoRoot>/.store
	ws       *worldstate.Manager
	lockMaxAge time.Duration
}

// New constructs a Manager. repoRoot is the repository root directory;
// storeDir is typically filepath.Join(repoRoot, ".store").
func New(repoRoot, storeDir string, ws *worldstate.Manager) *Manager {
	return &Manager{
		repoRoot:   repoRoot,
		storeDir:   storeDir,
		ws:         ws,
		lockMaxAge: DefaultLockMaxAge,
	}
}

// SetLockMaxAge overrides the default stale-lock age threshold (tests use
// this to exercise reclaim without waiting 4 hours).
func (m *Manager) SetLockMaxAge(d time.Duration) {
	m.lockMaxAge = d
}

// pathFor returns the on-disk directory a named workspace lives at.
// "main" is the repository root itself (spec.md §3 "Workspace").
func (m *Manager) pathFor(name string) string {
	if name == types.MainWorkspaceName {
		return m.repoRoot
	}
	return filepath.Join(m.storeDir, "workspaces", name)
}

// metadataPathFor returns the sidecar metadata file path for name.
func (m *Manager) metadataPathFor(name string) string {
	if name == types.MainWorkspaceName {
		return filepath.Join(m.storeDir, "main.json")
	}
	return filepath.Join(m.storeDir, "workspaces", name+".json")
}

// lockDirFor returns the lock directory path for name.
func (m *Manager) lockDirFor(name string) string {
	if name == types.MainWorkspaceName {
		return filepath.Join(m.storeDir, "main.lockdir")
	}
	return filepath.Join(m.storeDir, "workspaces", name+".lockdir")
}
