package repository

import (
	"time"

	"github.com/vexd/vexd/pkg/log"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
)

// DefaultRejectedTransitionAge is how long a rejected/superseded
// transition survives before it becomes eligible for deletion (spec.md
// §4.4 "Garbage collection" sweep phase).
const DefaultRejectedTransitionAge = 7 * 24 * time.Hour

// GCOptions tunes a collection run.
type GCOptions struct {
	DryRun         bool
	RejectedMaxAge time.Duration // zero means DefaultRejectedTransitionAge
}

// GCReport summarizes what a collection run found or removed.
type GCReport struct {
	DeletableObjects     int
	ReclaimedBytes       int64
	DeletableTransitions int
	DeletableStates      int
	DeletableIntents     int
	DeletableStatCache   int
}

// GC runs mark-and-sweep under a single read-consistent snapshot for the
// mark phase, then (unless DryRun) a write batch for the sweep, and
// finally deletes orphaned fs blob files only after that batch commits —
// so a crash mid-GC can leak fs files (reclaimable next run) but can
// never lose a reachable blob (spec.md §4.4 "Garbage collection").
func (r *Repository) GC(opts GCOptions, now time.Time) (GCReport, error) {
	maxAge := opts.RejectedMaxAge
	if maxAge <= 0 {
		maxAge = DefaultRejectedTransitionAge
	}

	var (
		liveStates     map[string]bool
		reachableHash  map[string]bool
		allTransitions []types.Transition
		allStateIDs    []string
		allIntentIDs   []string
		allObjectHash  []string
		statEntries    []storage.StatCacheEntry
	)

	err := r.store.View(func(tx *storage.Tx) error {
		lanes, err := r.world.ListLanes(tx)
		if err != nil {
			return err
		}
		transitions, err := tx.ListTransitions()
		if err != nil {
			return err
		}
		allTransitions = transitions

		liveStates = make(map[string]bool)
		seed := func(id *string) {
			if id != nil {
				liveStates[*id] = true
			}
		}
		for _, lane := range lanes {
			seed(lane.HeadState)
			seed(lane.ForkBase)
		}
		for _, t := range transitions {
			if t.Status != types.StatusRejected && t.Status != types.StatusSuperseded {
				seed(t.FromState)
				s := t.ToState
				seed(&s)
			} else if now.Sub(t.UpdatedAt) < maxAge {
				seed(t.FromState)
				s := t.ToState
				seed(&s)
			}
		}

		// Walk parent chains backward to close the live set.
		frontier := make([]string, 0, len(liveStates))
		for id := range liveStates {
			frontier = append(frontier, id)
		}
		for len(frontier) > 0 {
			id := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			s, err := tx.GetState(id)
			if err != nil {
				continue
			}
			if s.ParentID != nil && !liveStates[*s.ParentID] {
				liveStates[*s.ParentID] = true
				frontier = append(frontier, *s.ParentID)
			}
		}

		reachableHash = make(map[string]bool)
		for id := range liveStates {
			s, err := tx.GetState(id)
			if err != nil {
				continue
			}
			if err := markTree(tx, s.RootTree, reachableHash); err != nil {
				return err
			}
		}

		ids, err := tx.ListStateIDs()
		if err != nil {
			return err
		}
		allStateIDs = ids

		intentIDs, err := tx.ListIntentIDs()
		if err != nil {
			return err
		}
		allIntentIDs = intentIDs

		hashes, err := tx.AllObjectHashes()
		if err != nil {
			return err
		}
		allObjectHash = hashes

		entries, err := tx.AllStatCacheEntries()
		if err != nil {
			return err
		}
		statEntries = entries
		return nil
	})
	if err != nil {
		return GCReport{}, err
	}

	// Compute the deletable sets from the consistent snapshot above.
	deletableObjects := make([]string, 0)
	for _, h := range allObjectHash {
		if !reachableHash[h] {
			deletableObjects = append(deletableObjects, h)
		}
	}
	deletableObjectSet := make(map[string]bool, len(deletableObjects))
	for _, h := range deletableObjects {
		deletableObjectSet[h] = true
	}

	deletableTransitions := make([]string, 0)
	referencedIntents := make(map[string]bool)
	for _, t := range allTransitions {
		eligible := (t.Status == types.StatusRejected || t.Status == types.StatusSuperseded) && now.Sub(t.UpdatedAt) >= maxAge
		if eligible {
			deletableTransitions = append(deletableTransitions, t.ID)
		} else {
			referencedIntents[t.IntentID] = true
		}
	}

	deletableIntents := make([]string, 0)
	for _, id := range allIntentIDs {
		if !referencedIntents[id] {
			deletableIntents = append(deletableIntents, id)
		}
	}

	deletableStates := make([]string, 0)
	for _, id := range allStateIDs {
		if !liveStates[id] {
			deletableStates = append(deletableStates, id)
		}
	}

	deletableStatCache := make([][]byte, 0)
	for _, e := range statEntries {
		if deletableObjectSet[e.Hash] {
			deletableStatCache = append(deletableStatCache, e.Key)
		}
	}

	report := GCReport{
		DeletableObjects:     len(deletableObjects),
		DeletableTransitions: len(deletableTransitions),
		DeletableStates:      len(deletableStates),
		DeletableIntents:     len(deletableIntents),
		DeletableStatCache:   len(deletableStatCache),
	}

	if opts.DryRun {
		return report, nil
	}

	var reclaimed int64
	var fsDeletedHashes []string
	err = r.store.Batch(func(tx *storage.Tx) error {
		for _, h := range deletableObjects {
			isFS, size, err := tx.DeleteObjectRecord(h)
			if err != nil {
				return err
			}
			reclaimed += size
			if isFS {
				fsDeletedHashes = append(fsDeletedHashes, h)
			}
		}
		for _, id := range deletableTransitions {
			if err := tx.DeleteTransition(id); err != nil {
				return err
			}
		}
		for _, id := range deletableIntents {
			if err := tx.DeleteIntent(id); err != nil {
				return err
			}
		}
		for _, id := range deletableStates {
			if err := tx.DeleteState(id); err != nil {
				return err
			}
		}
		for _, key := range deletableStatCache {
			if err := tx.DeleteStatCacheKey(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return GCReport{}, err
	}
	report.ReclaimedBytes = reclaimed

	// Only unlink fs-fanout files after the batch above has committed: a
	// crash here leaks files a later GC run will still find and reclaim,
	// but never loses a blob a concurrent reader still considers present.
	for _, h := range fsDeletedHashes {
		if err := r.store.RemoveBlobFile(h); err != nil {
			log.Logger.Warn().Err(err).Str("hash", h).Msg("gc: failed to remove fs blob after commit, will retry next run")
		}
	}

	return report, nil
}

// markTree recursively marks a tree hash and everything it reaches
// (subtrees and blobs) as reachable.
func markTree(tx *storage.Tx, treeHash string, reachable map[string]bool) error {
	if reachable[treeHash] {
		return nil
	}
	reachable[treeHash] = true

	entries, err := tx.ReadTree(treeHash)
	if err != nil {
		return err
	}
	for _, e := range entries {
		switch e.Kind {
		case types.TreeEntryTree:
			if err := markTree(tx, e.Hash, reachable); err != nil {
				return err
			}
		default:
			reachable[e.Hash] = true
		}
	}
	return nil
}
