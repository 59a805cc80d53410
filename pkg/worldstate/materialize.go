package worldstate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// Materialize flattens state's tree and writes every path under
// targetDir, chmod'ing each file (spec.md §4.2 "Materialize"). When
// targetDir is the main workspace (the repository root), any path under
// the store directory name is skipped so a materialize can never
// overwrite the store itself.
func (m *Manager) Materialize(tx *storage.Tx, stateID, targetDir string, isMainWorkspace bool) error {
	s, err := tx.GetState(stateID)
	if err != nil {
		return err
	}
	flat, err := m.FlattenTree(tx, s.RootTree)
	if err != nil {
		return err
	}

	for path, entry := range flat {
		if isMainWorkspace && isStorePath(path) {
			continue
		}
		obj, err := tx.GetObject(entry.Hash)
		if err != nil {
			return err
		}
		dest := filepath.Join(targetDir, filepath.FromSlash(path))
		if err := writeFileAtomic(dest, obj.Payload, os.FileMode(entry.Mode)); err != nil {
			return err
		}
	}
	return nil
}

// isStorePath reports whether a path (always slash-separated, relative to
// the workspace root) starts with the reserved store directory.
func isStorePath(p string) bool {
	return p == storeDirName || strings.HasPrefix(p, storeDirName+"/")
}

// writeFileAtomic writes data to dest via temp-file + fsync + rename,
// creating parent directories as needed, then chmods dest — swallowing
// the chmod error on filesystems that reject it (spec.md §4.2
// "Materialize").
func writeFileAtomic(dest string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", vexerrors.ErrIOFailure, dir, err)
	}
	if err := atomicfile.Write(dest, data, mode); err != nil {
		return fmt.Errorf("%w: write %s: %v", vexerrors.ErrIOFailure, dest, err)
	}
	_ = os.Chmod(dest, mode)
	return nil
}
