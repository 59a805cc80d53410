package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/log"
	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// readMetadata loads a workspace's sidecar metadata file.
func (m *Manager) readMetadata(name string) (types.Workspace, error) {
	raw, err := os.ReadFile(m.metadataPathFor(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Workspace{}, fmt.Errorf("%w: workspace %q", vexerrors.ErrNotFound, name)
		}
		return types.Workspace{}, fmt.Errorf("%w: read workspace metadata %q: %v", vexerrors.ErrIOFailure, name, err)
	}
	var w types.Workspace
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Workspace{}, fmt.Errorf("%w: corrupt workspace metadata %q: %v", vexerrors.ErrIOFailure, name, err)
	}
	return w, nil
}

// metadataExists reports whether a sidecar file already exists for name.
func (m *Manager) metadataExists(name string) bool {
	_, err := os.Stat(m.metadataPathFor(name))
	return err == nil
}

// writeMetadata atomically persists a workspace's sidecar file
// (spec.md §4.3 "Metadata writes").
func (m *Manager) writeMetadata(w types.Workspace) error {
	encoded, err := serialize.CanonicalJSON(w)
	if err != nil {
		return fmt.Errorf("encode workspace metadata %q: %w", w.Name, err)
	}
	dest := m.metadataPathFor(w.Name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: create metadata directory: %v", vexerrors.ErrIOFailure, err)
	}
	if err := atomicfile.Write(dest, encoded, 0o644); err != nil {
		return fmt.Errorf("%w: write workspace metadata %q: %v", vexerrors.ErrIOFailure, w.Name, err)
	}
	return nil
}

// List returns every workspace's metadata, including main. Corrupt
// sidecar files are logged and skipped rather than failing the whole
// listing (spec.md §7 "corrupt workspace metadata is logged and skipped
// from listings").
func (m *Manager) List() ([]types.Workspace, error) {
	out := []types.Workspace{}
	if w, err := m.readMetadata(types.MainWorkspaceName); err == nil {
		out = append(out, w)
	}

	dir := filepath.Join(m.storeDir, "workspaces")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("%w: list workspaces: %v", vexerrors.ErrIOFailure, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		w, err := m.readMetadata(name)
		if err != nil {
			log.Logger.Warn().Err(err).Str("workspace", name).Msg("skipping unreadable workspace metadata")
			continue
		}
		out = append(out, w)
	}
	return out, nil
}
