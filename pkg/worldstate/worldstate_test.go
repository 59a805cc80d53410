package worldstate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

func openTestManager(t *testing.T) (*storage.Store, *Manager) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "vexd.db"), filepath.Join(dir, "blobs"), 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, New(s, 0)
}

func newIntent(id string) types.Intent {
	return types.Intent{ID: id, Prompt: "test intent", Agent: types.AgentIdentity{AgentID: "tester", AgentType: "test"}}
}

func TestCreateState_SameTreeDifferentNonceDifferentID(t *testing.T) {
	s, m := openTestManager(t)

	var s1, s2 types.State
	err := s.Batch(func(tx *storage.Tx) error {
		var err error
		s1, err = m.CreateState(tx, "tree-hash-a", nil, time.Unix(1000, 0))
		if err != nil {
			return err
		}
		s2, err = m.CreateState(tx, "tree-hash-a", nil, time.Unix(1000, 0))
		return err
	})
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID, "the random nonce must keep repeated snapshots of the same tree distinct")
}

func TestValidateName_RejectsPathSeparatorsAndDotDot(t *testing.T) {
	for _, bad := range []string{"", "a/b", "a\\b", "..", "a/../b"} {
		err := ValidateName(bad)
		assert.Errorf(t, err, "expected %q to be rejected", bad)
		assert.ErrorIs(t, err, vexerrors.ErrInvalidName)
	}
	assert.NoError(t, ValidateName("perfectly-fine-name"))
}

func TestEvaluate_AcceptAdvancesLaneHead(t *testing.T) {
	s, m := openTestManager(t)

	var t1 types.Transition
	err := s.Batch(func(tx *storage.Tx) error {
		var err error
		t1, err = m.Propose(tx, nil, "state-1", newIntent("intent-1"), "main", types.CostRecord{}, time.Unix(1, 0))
		return err
	})
	require.NoError(t, err)

	var status types.TransitionStatus
	err = s.Batch(func(tx *storage.Tx) error {
		var err error
		status, err = m.Evaluate(tx, t1.ID, types.EvaluationResult{Passed: true}, time.Unix(2, 0))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, status)

	err = s.View(func(tx *storage.Tx) error {
		lane, err := m.GetLane(tx, "main")
		require.NoError(t, err)
		require.NotNil(t, lane.HeadState)
		assert.Equal(t, "state-1", *lane.HeadState)
		return nil
	})
	require.NoError(t, err)
}

// TestEvaluate_StaleAcceptIsRejected is the stale-accept invariant: two
// transitions proposed from the same lane head, with the first accepted
// first, must cause the second's accept to fail even though its own
// evaluator passed (spec.md §4.2 "stale accept").
func TestEvaluate_StaleAcceptIsRejected(t *testing.T) {
	s, m := openTestManager(t)

	var tA, tB types.Transition
	err := s.Batch(func(tx *storage.Tx) error {
		var err error
		tA, err = m.Propose(tx, nil, "state-a", newIntent("intent-a"), "main", types.CostRecord{}, time.Unix(1, 0))
		if err != nil {
			return err
		}
		tB, err = m.Propose(tx, nil, "state-b", newIntent("intent-b"), "main", types.CostRecord{}, time.Unix(1, 0))
		return err
	})
	require.NoError(t, err)

	err = s.Batch(func(tx *storage.Tx) error {
		status, err := m.Evaluate(tx, tA.ID, types.EvaluationResult{Passed: true}, time.Unix(2, 0))
		require.NoError(t, err)
		require.Equal(t, types.StatusAccepted, status)
		return nil
	})
	require.NoError(t, err)

	var statusB types.TransitionStatus
	err = s.Batch(func(tx *storage.Tx) error {
		var err error
		statusB, err = m.Evaluate(tx, tB.ID, types.EvaluationResult{Passed: true}, time.Unix(3, 0))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, statusB, "accepting from a stale head must downgrade to rejected, not propagate the passing verdict")

	err = s.View(func(tx *storage.Tx) error {
		lane, err := m.GetLane(tx, "main")
		require.NoError(t, err)
		require.NotNil(t, lane.HeadState)
		assert.Equal(t, "state-a", *lane.HeadState, "the stale transition must not move the lane head")
		return nil
	})
	require.NoError(t, err)
}

func TestEvaluate_FailingResultNeverAccepted(t *testing.T) {
	s, m := openTestManager(t)

	var t1 types.Transition
	err := s.Batch(func(tx *storage.Tx) error {
		var err error
		t1, err = m.Propose(tx, nil, "state-1", newIntent("intent-1"), "main", types.CostRecord{}, time.Unix(1, 0))
		return err
	})
	require.NoError(t, err)

	var status types.TransitionStatus
	err = s.Batch(func(tx *storage.Tx) error {
		var err error
		status, err = m.Evaluate(tx, t1.ID, types.EvaluationResult{Passed: false}, time.Unix(2, 0))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, status)
}

func TestEvaluate_AlreadyEvaluatedTransitionRejectsReEvaluation(t *testing.T) {
	s, m := openTestManager(t)

	var t1 types.Transition
	err := s.Batch(func(tx *storage.Tx) error {
		var err error
		t1, err = m.Propose(tx, nil, "state-1", newIntent("intent-1"), "main", types.CostRecord{}, time.Unix(1, 0))
		return err
	})
	require.NoError(t, err)

	err = s.Batch(func(tx *storage.Tx) error {
		_, err := m.Evaluate(tx, t1.ID, types.EvaluationResult{Passed: true}, time.Unix(2, 0))
		return err
	})
	require.NoError(t, err)

	err = s.Batch(func(tx *storage.Tx) error {
		_, err := m.Evaluate(tx, t1.ID, types.EvaluationResult{Passed: true}, time.Unix(3, 0))
		return err
	})
	assert.Error(t, err)
}

func TestTrace_WalksAcceptedAncestryOnly(t *testing.T) {
	s, m := openTestManager(t)

	var t1, t2 types.Transition
	err := s.Batch(func(tx *storage.Tx) error {
		var err error
		t1, err = m.Propose(tx, nil, "state-1", newIntent("intent-1"), "main", types.CostRecord{}, time.Unix(1, 0))
		if err != nil {
			return err
		}
		_, err = m.Evaluate(tx, t1.ID, types.EvaluationResult{Passed: true}, time.Unix(2, 0))
		if err != nil {
			return err
		}
		from := "state-1"
		t2, err = m.Propose(tx, &from, "state-2", newIntent("intent-2"), "main", types.CostRecord{}, time.Unix(3, 0))
		if err != nil {
			return err
		}
		_, err = m.Evaluate(tx, t2.ID, types.EvaluationResult{Passed: true}, time.Unix(4, 0))
		return err
	})
	require.NoError(t, err)

	var trail []types.Transition
	err = s.View(func(tx *storage.Tx) error {
		var err error
		trail, err = m.Trace(tx, "state-2", 100)
		return err
	})
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "state-2", trail[0].ToState)
	assert.Equal(t, "state-1", trail[1].ToState)
}

func TestTrace_MaxDepthBoundsWalk(t *testing.T) {
	s, m := openTestManager(t)

	err := s.Batch(func(tx *storage.Tx) error {
		prev := (*string)(nil)
		for i := 0; i < 5; i++ {
			to := string(rune('a' + i))
			tr, err := m.Propose(tx, prev, to, newIntent(to), "main", types.CostRecord{}, time.Unix(int64(i), 0))
			if err != nil {
				return err
			}
			if _, err := m.Evaluate(tx, tr.ID, types.EvaluationResult{Passed: true}, time.Unix(int64(i), 0)); err != nil {
				return err
			}
			toCopy := to
			prev = &toCopy
		}
		return nil
	})
	require.NoError(t, err)

	var trail []types.Transition
	err = s.View(func(tx *storage.Tx) error {
		var err error
		trail, err = m.Trace(tx, "e", 2)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, trail, 2, "trace must stop at max_depth even though the full ancestry is longer")
}
