package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vexd/vexd/pkg/budget"
	"github.com/vexd/vexd/pkg/log"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// laneBudget extracts a lane's BudgetConfig from its freeform metadata, if
// present (spec.md §3 "Budget config ... stored in the lane's metadata").
func laneBudget(lane types.Lane) types.BudgetConfig {
	var cfg types.BudgetConfig
	raw, ok := lane.Metadata["budget"]
	if !ok {
		return cfg
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return cfg
	}
	_ = json.Unmarshal(encoded, &cfg)
	return cfg
}

// accumulatedCost sums the cost of every transition proposed so far on
// lane, regardless of outcome: cost is incurred by running the agent and
// evaluator, whether or not the transition is ultimately accepted.
func accumulatedCost(tx *storage.Tx, lane string) (types.CostRecord, error) {
	all, err := tx.ListTransitionsByLane(lane)
	if err != nil {
		return types.CostRecord{}, err
	}
	var total types.CostRecord
	for _, t := range all {
		total = total.Add(t.Cost)
	}
	return total, nil
}

// Propose checks the lane's budget against its accumulated cost, then
// persists the intent and a proposed transition (spec.md §4.4 "Propose").
func (r *Repository) Propose(from *string, to string, intent types.Intent, lane string, cost types.CostRecord, now time.Time) (types.Transition, error) {
	if err := r.verifyWritable(); err != nil {
		return types.Transition{}, err
	}

	var transition types.Transition
	err := r.store.Batch(func(tx *storage.Tx) error {
		cfg := types.BudgetConfig{}
		if existing, err := tx.GetLane(lane); err == nil {
			cfg = laneBudget(existing)
		}

		accumulated, err := accumulatedCost(tx, lane)
		if err != nil {
			return err
		}
		usage, err := budget.Check(cfg, accumulated, cost)
		if err != nil {
			return err
		}
		if crossed := budget.AlertThreshold(cfg, usage); len(crossed) > 0 {
			// Alert-threshold crossings are warned about, not enforced: the
			// propose still proceeds.
			log.Logger.Warn().Str("lane", lane).Strs("limits", crossed).
				Msg("lane budget alert threshold crossed")
		}

		t, err := r.world.Propose(tx, from, to, intent, lane, cost, now)
		if err != nil {
			return err
		}
		transition = t
		return nil
	})
	if err != nil {
		return types.Transition{}, err
	}
	return transition, nil
}

// Accept runs result through Evaluate and, when accepted, advances the
// lane's fork_base too if the intent is tagged "promote" — a promoted
// transition's target becomes the new basis for future conflict detection
// on that lane (spec.md §4.4 "Accept").
func (r *Repository) Accept(transitionID string, result types.EvaluationResult, now time.Time) (types.TransitionStatus, error) {
	if err := r.verifyWritable(); err != nil {
		return "", err
	}

	var transition types.Transition
	var status types.TransitionStatus
	err := r.store.Batch(func(tx *storage.Tx) error {
		t, err := tx.GetTransition(transitionID)
		if err != nil {
			return err
		}
		transition = t

		s, err := r.world.Evaluate(tx, transitionID, result, now)
		if err != nil {
			return err
		}
		status = s
		return nil
	})
	if err != nil {
		return "", err
	}

	if status == types.StatusAccepted {
		r.advanceForkBaseOnPromote(transition)
	}
	return status, nil
}

// advanceForkBaseOnPromote advances the source lane's fork_base to the
// newly accepted state when the accepted transition's intent carries the
// "promote" tag, so the next promote computes a minimal delta. Per
// spec.md §4.4 "Accept", failure here is logged, not fatal: the worst
// case is a larger delta on the next promote, not a lost transition.
func (r *Repository) advanceForkBaseOnPromote(t types.Transition) {
	err := r.store.Batch(func(tx *storage.Tx) error {
		intent, err := tx.GetIntent(t.IntentID)
		if err != nil {
			return err
		}
		if !intent.HasTag("promote") {
			return nil
		}
		lane, err := tx.GetLane(t.Lane)
		if err != nil {
			return err
		}
		lane.ForkBase = &t.ToState
		return tx.PutLane(lane)
	})
	if err != nil {
		log.Logger.Warn().Err(err).Str("lane", t.Lane).Str("transition", t.ID).
			Msg("failed to advance lane fork_base after promote accept")
	}
}

// Reject records a failing or forced-failing evaluation without touching
// the lane head (spec.md §4.4 "Reject").
func (r *Repository) Reject(transitionID string, result types.EvaluationResult, now time.Time) error {
	if err := r.verifyWritable(); err != nil {
		return err
	}
	result.Passed = false
	return r.store.Batch(func(tx *storage.Tx) error {
		status, err := r.world.Evaluate(tx, transitionID, result, now)
		if err != nil {
			return err
		}
		if status != types.StatusRejected {
			return fmt.Errorf("%w: transition %s resolved to %s, not rejected", vexerrors.ErrIOFailure, transitionID, status)
		}
		return nil
	})
}
