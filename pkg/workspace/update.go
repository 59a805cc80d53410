package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// Update advances a workspace to newState, applying only the paths that
// actually changed since its recorded base state (spec.md §4.3 "Update").
// With no base state it falls back to a full materialize.
func (m *Manager) Update(name, newState string, now time.Time) error {
	ws, err := m.readMetadata(name)
	if err != nil {
		return err
	}

	marker := dirtyMarker{FromState: ws.BaseState, ToState: newState, StartedAt: now}
	if err := m.writeDirtyMarker(ws.Path, marker); err != nil {
		return err
	}

	isMain := name == types.MainWorkspaceName

	if ws.BaseState == nil {
		err := m.ws.Store().View(func(tx *storage.Tx) error {
			return m.ws.Materialize(tx, newState, ws.Path, isMain)
		})
		if err != nil {
			return err
		}
	} else {
		err := m.ws.Store().View(func(tx *storage.Tx) error {
			diff, err := m.ws.Diff(tx, *ws.BaseState, newState)
			if err != nil {
				return err
			}
			return m.applyDiff(tx, ws.Path, diff, isMain)
		})
		if err != nil {
			return err
		}
	}

	if err := m.clearDirtyMarker(ws.Path); err != nil {
		return err
	}

	ws.BaseState = &newState
	ws.UpdatedAt = now
	return m.writeMetadata(ws)
}

// ApplyDiff applies a diff directly to an arbitrary directory, outside
// the metadata-tracked Update flow — used by promote's rebase step to
// apply only a target lane's delta onto a workspace directory (spec.md
// §4.4 "Promote algorithm" step 6).
func (m *Manager) ApplyDiff(tx *storage.Tx, root string, diff types.Diff, isMain bool) error {
	return m.applyDiff(tx, root, diff, isMain)
}

// applyDiff applies removals (with empty-parent cleanup), then
// additions+modifications, skipping the reserved store directory prefix
// for the main workspace (spec.md §4.3 "Update").
func (m *Manager) applyDiff(tx *storage.Tx, root string, diff types.Diff, isMain bool) error {
	for _, c := range diff.Removed {
		if isMain && isStorePath(c.Path) {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(c.Path))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", vexerrors.ErrIOFailure, target, err)
		}
		removeEmptyParents(root, filepath.Dir(target))
	}

	for _, c := range append(append([]types.PathChange{}, diff.Added...), diff.Modified...) {
		if isMain && isStorePath(c.Path) {
			continue
		}
		obj, err := tx.GetObject(c.AfterHash)
		if err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(c.Path))
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			if err := os.RemoveAll(target); err != nil {
				return fmt.Errorf("%w: remove directory blocking file %s: %v", vexerrors.ErrIOFailure, target, err)
			}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("%w: create directory for %s: %v", vexerrors.ErrIOFailure, target, err)
		}
		if err := atomicfile.Write(target, obj.Payload, os.FileMode(c.AfterMode)); err != nil {
			return fmt.Errorf("%w: write %s: %v", vexerrors.ErrIOFailure, target, err)
		}
		_ = os.Chmod(target, os.FileMode(c.AfterMode))
	}
	return nil
}

// removeEmptyParents walks upward from dir removing directories left
// empty by a removal, stopping at root.
func removeEmptyParents(root, dir string) {
	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// isStorePath reports whether path (relative, slash-separated) falls
// under the reserved store directory.
func isStorePath(path string) bool {
	return path == storeDirName || strings.HasPrefix(path, storeDirName+"/")
}

const storeDirName = ".store"
