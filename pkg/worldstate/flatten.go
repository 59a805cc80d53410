package worldstate

import (
	"fmt"
	"path"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// FlatEntry is one path's resolved content and mode inside a flattened
// tree (spec.md §4.2 "Diff": "Flatten both trees into path -> (blob_hash,
// mode) maps").
type FlatEntry struct {
	Hash string
	Mode uint32
	Kind types.TreeEntryKind
}

// FlattenTree walks the tree at rootHash and returns every blob path it
// contains, relative to the tree root, depth-bounded by the manager's
// max_tree_depth.
func (m *Manager) FlattenTree(tx *storage.Tx, rootHash string) (map[string]FlatEntry, error) {
	out := make(map[string]FlatEntry)
	if err := m.flattenInto(tx, rootHash, "", 0, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) flattenInto(tx *storage.Tx, treeHash, prefix string, depth int, out map[string]FlatEntry) error {
	if depth > m.maxTreeDepth {
		return fmt.Errorf("%w: tree depth exceeds max_tree_depth %d at %q", vexerrors.ErrLimitExceeded, m.maxTreeDepth, prefix)
	}
	entries, err := tx.ReadTree(treeHash)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := e.Name
		if prefix != "" {
			p = path.Join(prefix, e.Name)
		}
		switch e.Kind {
		case types.TreeEntryTree:
			if err := m.flattenInto(tx, e.Hash, p, depth+1, out); err != nil {
				return err
			}
		default:
			out[p] = FlatEntry{Hash: e.Hash, Mode: e.Mode, Kind: types.TreeEntryBlob}
		}
	}
	return nil
}
