package worldstate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// Propose inserts the intent, a proposed transition, and (insert-or-ignore)
// a lane row seeded at `from` (spec.md §4.2 "Intent & transition").
func (m *Manager) Propose(tx *storage.Tx, from *string, to string, intent types.Intent, lane string, cost types.CostRecord, now time.Time) (types.Transition, error) {
	if err := tx.PutIntent(intent); err != nil {
		return types.Transition{}, fmt.Errorf("persist intent %s: %w", intent.ID, err)
	}

	if _, err := tx.GetLane(lane); err != nil {
		if _, lerr := m.CreateLane(tx, lane, from, now); lerr != nil {
			return types.Transition{}, lerr
		}
	}

	t := types.Transition{
		ID:        uuid.NewString(),
		FromState: from,
		ToState:   to,
		IntentID:  intent.ID,
		Lane:      lane,
		Status:    types.StatusProposed,
		Cost:      cost,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.PutTransition(t); err != nil {
		return types.Transition{}, fmt.Errorf("persist transition %s: %w", t.ID, err)
	}
	return t, nil
}

// Evaluate applies an evaluation result to a proposed transition
// (spec.md §4.2 "evaluate"). The stale-accept rule — downgrading a passing
// verdict to rejected when the lane head has moved since `from` — is the
// core safety invariant: it must run inside the same write transaction
// that reads the current lane head, so two concurrent accepts cannot both
// observe the pre-move head.
func (m *Manager) Evaluate(tx *storage.Tx, transitionID string, result types.EvaluationResult, now time.Time) (types.TransitionStatus, error) {
	t, err := tx.GetTransition(transitionID)
	if err != nil {
		return "", err
	}
	if t.Status != types.StatusProposed {
		return "", fmt.Errorf("%w: transition %s is %s, not proposed", vexerrors.ErrIOFailure, transitionID, t.Status)
	}

	lane, err := tx.GetLane(t.Lane)
	if err != nil {
		return "", err
	}

	finalStatus := types.StatusRejected
	if result.Passed {
		if sameState(lane.HeadState, t.FromState) {
			finalStatus = types.StatusAccepted
		} else {
			expected := "<none>"
			if t.FromState != nil {
				expected = *t.FromState
			}
			actual := "<none>"
			if lane.HeadState != nil {
				actual = *lane.HeadState
			}
			result.Summary = fmt.Sprintf(
				"stale: lane head moved to %s (expected %s). Re-propose from current head.",
				actual, expected,
			)
			result.Passed = false
		}
	}

	t.Status = finalStatus
	t.Evaluation = &result
	t.UpdatedAt = now
	if err := tx.PutTransition(t); err != nil {
		return "", fmt.Errorf("persist transition %s: %w", transitionID, err)
	}

	if finalStatus == types.StatusAccepted {
		lane.HeadState = &t.ToState
		if err := tx.PutLane(lane); err != nil {
			return "", fmt.Errorf("advance lane %s head: %w", t.Lane, err)
		}
	}

	return finalStatus, nil
}

func sameState(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Trace walks to_state backwards by accepted transitions, bounded by
// maxDepth (spec.md §4.2 "Trace").
func (m *Manager) Trace(tx *storage.Tx, toState string, maxDepth int) ([]types.Transition, error) {
	all, err := tx.ListTransitions()
	if err != nil {
		return nil, err
	}
	byTo := make(map[string]types.Transition, len(all))
	for _, t := range all {
		if t.Status == types.StatusAccepted {
			byTo[t.ToState] = t
		}
	}

	var trail []types.Transition
	current := toState
	for depth := 0; depth < maxDepth; depth++ {
		t, ok := byTo[current]
		if !ok {
			break
		}
		trail = append(trail, t)
		if t.FromState == nil {
			break
		}
		current = *t.FromState
	}
	return trail, nil
}
