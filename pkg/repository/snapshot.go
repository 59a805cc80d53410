package repository

import (
	"time"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
)

// Snapshot hashes workspaceDir into the content store and records a new
// State parented on parent (spec.md §4.2 "Directory hashing", §4.4 "on
// write operations ... re-verify the lock").
func (r *Repository) Snapshot(workspaceDir string, parent *string, now time.Time) (types.State, error) {
	if err := r.verifyWritable(); err != nil {
		return types.State{}, err
	}

	rootTree, err := r.world.Snapshot(workspaceDir)
	if err != nil {
		return types.State{}, err
	}

	var state types.State
	err = r.store.Batch(func(tx *storage.Tx) error {
		s, err := r.world.CreateState(tx, rootTree, parent, now)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return types.State{}, err
	}
	return state, nil
}
