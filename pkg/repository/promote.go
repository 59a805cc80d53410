package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// PromoteResult reports the outcome of a promote call: either a new
// transition proposed into the target lane, or a conflict report.
type PromoteResult struct {
	Transition *types.Transition
	Conflicts  []types.ConflictEntry
}

// PromoteOptions tunes a promote call.
type PromoteOptions struct {
	Force       bool // skip the conflict check, rebase anyway
	AutoAccept  bool
	Intent      types.Intent
	Cost        types.CostRecord
	EvaluatorOK types.EvaluationResult // used when AutoAccept is true
}

// Promote moves a source workspace's work into targetLane using
// path-level conflict detection, never a three-way content merge
// (spec.md §4.4 "Promote algorithm").
func (r *Repository) Promote(sourceWorkspace, targetLane string, opts PromoteOptions, now time.Time) (PromoteResult, error) {
	if err := r.verifyWritable(); err != nil {
		return PromoteResult{}, err
	}

	ws, err := r.ws.Get(sourceWorkspace)
	if err != nil {
		return PromoteResult{}, err
	}
	sourceLane := ws.Lane

	var targetHead, forkBase *string
	err = r.store.View(func(tx *storage.Tx) error {
		th, err := r.world.LaneHead(tx, targetLane)
		if err != nil {
			return err
		}
		fb, err := r.world.LaneForkBase(tx, sourceLane)
		if err != nil {
			return err
		}
		targetHead, forkBase = th, fb
		return nil
	})
	if err != nil {
		return PromoteResult{}, err
	}
	if targetHead == nil {
		return PromoteResult{}, fmt.Errorf("%w: target lane %q has no head state", vexerrors.ErrNotFound, targetLane)
	}
	if forkBase == nil {
		return PromoteResult{}, fmt.Errorf("%w: source lane %q has no fork_base", vexerrors.ErrNotFound, sourceLane)
	}

	// Fast path: nothing has landed in the target lane since the source
	// lane forked from it — snapshot straight onto the target head.
	if *forkBase == *targetHead {
		state, err := r.Snapshot(ws.Path, targetHead, now)
		if err != nil {
			return PromoteResult{}, err
		}
		return r.finishPromote(state, targetLane, opts, now)
	}

	laneHead, err := r.Snapshot(ws.Path, forkBase, now)
	if err != nil {
		return PromoteResult{}, err
	}

	var laneDelta, targetDelta types.Diff
	err = r.store.View(func(tx *storage.Tx) error {
		ld, err := r.world.Diff(tx, *forkBase, laneHead.ID)
		if err != nil {
			return err
		}
		td, err := r.world.Diff(tx, *forkBase, *targetHead)
		if err != nil {
			return err
		}
		laneDelta, targetDelta = ld, td
		return nil
	})
	if err != nil {
		return PromoteResult{}, err
	}

	conflicts := conflictingPaths(laneDelta, targetDelta)
	if len(conflicts) > 0 && !opts.Force {
		return PromoteResult{Conflicts: conflicts}, fmt.Errorf("%w: %d conflicting path(s) between lane %q and target %q",
			vexerrors.ErrConflict, len(conflicts), sourceLane, targetLane)
	}

	// Rebase: apply only target_delta onto the workspace directory. Paths
	// the agent changed are outside target_delta by construction, so they
	// remain untouched.
	isMain := sourceWorkspace == types.MainWorkspaceName
	err = r.store.Batch(func(tx *storage.Tx) error {
		return r.ws.ApplyDiff(tx, ws.Path, targetDelta, isMain)
	})
	if err != nil {
		return PromoteResult{}, err
	}

	rebased, err := r.Snapshot(ws.Path, targetHead, now)
	if err != nil {
		return PromoteResult{}, err
	}
	return r.finishPromote(rebased, targetLane, opts, now)
}

// conflictingPaths returns, sorted by path, every path touched by both
// deltas in any action — added, modified, or removed (spec.md §4.4
// "Path-level conflict detection").
func conflictingPaths(laneDelta, targetDelta types.Diff) []types.ConflictEntry {
	laneChanged := laneDelta.ChangedPaths()
	targetChanged := targetDelta.ChangedPaths()

	var conflicts []types.ConflictEntry
	for path, laneAction := range laneChanged {
		if targetAction, ok := targetChanged[path]; ok {
			conflicts = append(conflicts, types.ConflictEntry{
				Path:         path,
				LaneAction:   laneAction,
				TargetAction: targetAction,
			})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
	return conflicts
}

// finishPromote proposes state into targetLane, tagging the intent
// "promote" so Accept advances the source lane's fork_base, and
// optionally auto-accepts (spec.md §4.4 "Promote algorithm" step 8).
func (r *Repository) finishPromote(state types.State, targetLane string, opts PromoteOptions, now time.Time) (PromoteResult, error) {
	intent := opts.Intent
	if !intent.HasTag("promote") {
		intent.Tags = append(intent.Tags, "promote")
	}
	if intent.ID == "" {
		intent.ID = fmt.Sprintf("promote-%s-%d", targetLane, now.UnixNano())
	}
	intent.CreatedAt = now

	parent := state.ParentID
	t, err := r.Propose(parent, state.ID, intent, targetLane, opts.Cost, now)
	if err != nil {
		return PromoteResult{}, err
	}

	if opts.AutoAccept {
		status, err := r.Accept(t.ID, opts.EvaluatorOK, now)
		if err != nil {
			return PromoteResult{Transition: &t}, err
		}
		t.Status = status
	}
	return PromoteResult{Transition: &t}, nil
}
