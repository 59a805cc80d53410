package storage

import (
	"fmt"
	"sort"

	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/types"
)

// treePayload is the canonical on-disk shape of a tree object: entries
// sorted by name, always (spec.md §6 "Tree canonical form") so that two
// directories with the same contents hash identically regardless of the
// order snapshot happened to walk them in.
type treePayload struct {
	Entries []types.TreeEntry `json:"entries"`
}

// StoreTree canonicalizes entries (sorts by name, backfills default modes)
// and persists the resulting tree object, returning its hash.
func (tx *Tx) StoreTree(entries []types.TreeEntry) (string, error) {
	canon := make([]types.TreeEntry, len(entries))
	copy(canon, entries)
	for i, e := range canon {
		if e.Mode == 0 {
			switch e.Kind {
			case types.TreeEntryTree:
				canon[i].Mode = types.DefaultTreeMode
			default:
				canon[i].Mode = types.DefaultBlobMode
			}
		}
	}
	sort.Slice(canon, func(i, j int) bool { return canon[i].Name < canon[j].Name })

	payload, err := serialize.CanonicalJSON(treePayload{Entries: canon})
	if err != nil {
		return "", fmt.Errorf("canonicalize tree: %w", err)
	}
	return tx.putObject(types.KindTree, payload)
}

// ReadTree loads and decodes the tree object stored at hash.
func (tx *Tx) ReadTree(hash string) ([]types.TreeEntry, error) {
	obj, err := tx.GetObject(hash)
	if err != nil {
		return nil, err
	}
	var tp treePayload
	if err := decodeJSON(obj.Payload, &tp); err != nil {
		return nil, fmt.Errorf("decode tree %s: %w", hash, err)
	}
	return tp.Entries, nil
}
