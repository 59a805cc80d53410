package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// dirtyMarker is the JSON payload of the in-flight marker file left in a
// workspace during materialize/update (spec.md §4.3 "Creation").
type dirtyMarker struct {
	FromState *string   `json:"from_state,omitempty"`
	ToState   string    `json:"to_state,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Create materializes a new workspace for lane at state (nil means an
// empty workspace). No name may already have metadata, and non-main names
// must not have an existing target directory. A dirty marker is written
// before materialize and cleared after it; metadata is written only once
// materialize has finished (spec.md §4.3 "Creation").
func (m *Manager) Create(name, lane string, state *string, agentID *string, now time.Time) (types.Workspace, error) {
	if m.metadataExists(name) {
		return types.Workspace{}, fmt.Errorf("%w: workspace %q already exists", vexerrors.ErrIOFailure, name)
	}
	path := m.pathFor(name)
	if name != types.MainWorkspaceName {
		if _, err := os.Stat(path); err == nil {
			return types.Workspace{}, fmt.Errorf("%w: workspace directory %q already exists", vexerrors.ErrIOFailure, path)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return types.Workspace{}, fmt.Errorf("%w: create workspace directory: %v", vexerrors.ErrIOFailure, err)
		}
	}

	ws := types.Workspace{
		Name:      name,
		Lane:      lane,
		Path:      path,
		BaseState: state,
		Status:    types.WorkspaceIdle,
		AgentID:   agentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if state != nil {
		marker := dirtyMarker{ToState: *state, StartedAt: now}
		if err := m.writeDirtyMarker(path, marker); err != nil {
			return types.Workspace{}, err
		}

		isMain := name == types.MainWorkspaceName
		err := m.ws.Store().View(func(tx *storage.Tx) error {
			return m.ws.Materialize(tx, *state, path, isMain)
		})
		if err != nil {
			return types.Workspace{}, err
		}

		if err := m.clearDirtyMarker(path); err != nil {
			return types.Workspace{}, err
		}
	}

	if err := m.writeMetadata(ws); err != nil {
		return types.Workspace{}, err
	}
	return ws, nil
}

// Remove deletes a non-main workspace's directory and metadata. The main
// workspace (the repository root) can never be removed this way.
func (m *Manager) Remove(name string) error {
	if name == types.MainWorkspaceName {
		return fmt.Errorf("%w: the main workspace cannot be removed", vexerrors.ErrInvalidName)
	}
	if err := os.RemoveAll(m.pathFor(name)); err != nil {
		return fmt.Errorf("%w: remove workspace directory: %v", vexerrors.ErrIOFailure, err)
	}
	if err := os.Remove(m.metadataPathFor(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove workspace metadata: %v", vexerrors.ErrIOFailure, err)
	}
	_ = os.RemoveAll(m.lockDirFor(name))
	return nil
}

// Get returns a workspace's metadata.
func (m *Manager) Get(name string) (types.Workspace, error) {
	return m.readMetadata(name)
}

func (m *Manager) dirtyMarkerPath(workspacePath string) string {
	return filepath.Join(workspacePath, DirtyMarkerName)
}

func (m *Manager) writeDirtyMarker(workspacePath string, marker dirtyMarker) error {
	if err := os.MkdirAll(workspacePath, 0o755); err != nil {
		return fmt.Errorf("%w: create workspace directory: %v", vexerrors.ErrIOFailure, err)
	}
	encoded, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode dirty marker: %w", err)
	}
	if err := atomicfile.Write(m.dirtyMarkerPath(workspacePath), encoded, 0o644); err != nil {
		return fmt.Errorf("%w: write dirty marker: %v", vexerrors.ErrIOFailure, err)
	}
	return nil
}

func (m *Manager) clearDirtyMarker(workspacePath string) error {
	if err := os.Remove(m.dirtyMarkerPath(workspacePath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove dirty marker: %v", vexerrors.ErrIOFailure, err)
	}
	return nil
}

// hasDirtyMarker reports whether workspacePath has an in-flight marker,
// i.e. a prior materialize/update crashed before completing.
func (m *Manager) hasDirtyMarker(workspacePath string) bool {
	_, err := os.Stat(m.dirtyMarkerPath(workspacePath))
	return err == nil
}
