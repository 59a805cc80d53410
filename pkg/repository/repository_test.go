package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	root := t.TempDir()
	repo, err := Init(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func testIntent(prompt string) types.Intent {
	return types.Intent{ID: prompt, Prompt: prompt, Agent: types.AgentIdentity{AgentID: "tester", AgentType: "test"}}
}

func TestInit_CreatesMainWorkspaceOnMainLane(t *testing.T) {
	repo := openTestRepo(t)

	ws, err := repo.Workspaces().Get(types.MainWorkspaceName)
	require.NoError(t, err)
	assert.Equal(t, repo.Config().DefaultLane, ws.Lane)
	assert.Equal(t, repo.Root, ws.Path)
}

func TestSnapshotProposeAccept_EndToEnd(t *testing.T) {
	repo := openTestRepo(t)
	ws, err := repo.Workspaces().Get(types.MainWorkspaceName)
	require.NoError(t, err)

	writeFile(t, ws.Path, "hello.txt", "hello world")

	state, err := repo.Snapshot(ws.Path, ws.BaseState, time.Unix(1, 0))
	require.NoError(t, err)

	transition, err := repo.Propose(ws.BaseState, state.ID, testIntent("add hello.txt"), ws.Lane, types.CostRecord{}, time.Unix(2, 0))
	require.NoError(t, err)
	assert.Equal(t, types.StatusProposed, transition.Status)

	status, err := repo.Accept(transition.ID, types.EvaluationResult{Passed: true}, time.Unix(3, 0))
	require.NoError(t, err)
	assert.Equal(t, types.StatusAccepted, status)
}

// TestPromote_CleanFastPath covers scenario S2 from spec.md §8: a feature
// lane forked from main's head, nothing new on main since, promotes via
// the fast path straight onto main's head.
func TestPromote_CleanFastPath(t *testing.T) {
	repo := openTestRepo(t)
	mainWS, err := repo.Workspaces().Get(types.MainWorkspaceName)
	require.NoError(t, err)

	writeFile(t, mainWS.Path, "base.txt", "base content")
	baseState, err := repo.Snapshot(mainWS.Path, mainWS.BaseState, time.Unix(1, 0))
	require.NoError(t, err)
	tr, err := repo.Propose(mainWS.BaseState, baseState.ID, testIntent("base"), mainWS.Lane, types.CostRecord{}, time.Unix(1, 0))
	require.NoError(t, err)
	_, err = repo.Accept(tr.ID, types.EvaluationResult{Passed: true}, time.Unix(1, 0))
	require.NoError(t, err)

	featureState := baseState.ID
	err = repo.Store().Batch(func(tx *storage.Tx) error {
		_, err := repo.World().CreateLane(tx, "feature-lane", &featureState, time.Unix(2, 0))
		return err
	})
	require.NoError(t, err)
	_, err = repo.Workspaces().Create("feature", "feature-lane", &featureState, nil, time.Unix(2, 0))
	require.NoError(t, err)
	featureWS, err := repo.Workspaces().Get("feature")
	require.NoError(t, err)

	writeFile(t, featureWS.Path, "feature.txt", "new feature")

	result, err := repo.Promote("feature", mainWS.Lane, PromoteOptions{
		AutoAccept: true,
		Intent:     testIntent("promote feature"),
	}, time.Unix(3, 0))
	require.NoError(t, err)
	require.NotNil(t, result.Transition)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, types.StatusAccepted, result.Transition.Status)

	err = repo.Store().View(func(tx *storage.Tx) error {
		head, err := repo.World().LaneHead(tx, mainWS.Lane)
		require.NoError(t, err)
		require.NotNil(t, head)
		headState, err := repo.World().GetState(tx, *head)
		require.NoError(t, err)
		files, err := repo.World().FlattenTree(tx, headState.RootTree)
		require.NoError(t, err)
		assert.Contains(t, files, "feature.txt", "main's new head state must carry the promoted file")
		return nil
	})
	require.NoError(t, err)
}

// TestPromote_ConflictingPathsReported covers scenario S3: both the
// source lane and the target lane modified the same path since their
// shared fork_base, so promote must refuse without --force.
func TestPromote_ConflictingPathsReported(t *testing.T) {
	repo := openTestRepo(t)
	mainWS, err := repo.Workspaces().Get(types.MainWorkspaceName)
	require.NoError(t, err)

	writeFile(t, mainWS.Path, "shared.txt", "original")
	baseState, err := repo.Snapshot(mainWS.Path, mainWS.BaseState, time.Unix(1, 0))
	require.NoError(t, err)
	tr, err := repo.Propose(mainWS.BaseState, baseState.ID, testIntent("base"), mainWS.Lane, types.CostRecord{}, time.Unix(1, 0))
	require.NoError(t, err)
	_, err = repo.Accept(tr.ID, types.EvaluationResult{Passed: true}, time.Unix(1, 0))
	require.NoError(t, err)

	featureState := baseState.ID
	err = repo.Store().Batch(func(tx *storage.Tx) error {
		_, err := repo.World().CreateLane(tx, "feature-lane", &featureState, time.Unix(2, 0))
		return err
	})
	require.NoError(t, err)
	_, err = repo.Workspaces().Create("feature", "feature-lane", &featureState, nil, time.Unix(2, 0))
	require.NoError(t, err)
	featureWS, err := repo.Workspaces().Get("feature")
	require.NoError(t, err)
	writeFile(t, featureWS.Path, "shared.txt", "changed on feature")

	// Meanwhile, main moves on and touches the same path.
	writeFile(t, mainWS.Path, "shared.txt", "changed on main")
	mainState2, err := repo.Snapshot(mainWS.Path, &baseState.ID, time.Unix(2, 500))
	require.NoError(t, err)
	tr2, err := repo.Propose(&baseState.ID, mainState2.ID, testIntent("main moves on"), mainWS.Lane, types.CostRecord{}, time.Unix(2, 500))
	require.NoError(t, err)
	_, err = repo.Accept(tr2.ID, types.EvaluationResult{Passed: true}, time.Unix(2, 500))
	require.NoError(t, err)

	result, err := repo.Promote("feature", mainWS.Lane, PromoteOptions{
		Intent: testIntent("promote feature"),
	}, time.Unix(3, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, vexerrors.ErrConflict)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "shared.txt", result.Conflicts[0].Path)
}

// TestGC_PreservesBlobsReachableFromLiveState covers scenario S4: a blob
// shared between a live state and an old, collectible rejected transition
// must survive GC because a live state still reaches it.
func TestGC_PreservesBlobsReachableFromLiveState(t *testing.T) {
	repo := openTestRepo(t)
	mainWS, err := repo.Workspaces().Get(types.MainWorkspaceName)
	require.NoError(t, err)

	writeFile(t, mainWS.Path, "keep.txt", "shared content that must survive")
	state, err := repo.Snapshot(mainWS.Path, mainWS.BaseState, time.Unix(1, 0))
	require.NoError(t, err)
	tr, err := repo.Propose(mainWS.BaseState, state.ID, testIntent("keep"), mainWS.Lane, types.CostRecord{}, time.Unix(1, 0))
	require.NoError(t, err)
	_, err = repo.Accept(tr.ID, types.EvaluationResult{Passed: true}, time.Unix(1, 0))
	require.NoError(t, err)

	// A second, rejected attempt from the same base reuses the same blob
	// content (same file, so same hash) plus an orphaned one of its own.
	writeFile(t, mainWS.Path, "keep.txt", "shared content that must survive")
	writeFile(t, mainWS.Path, "orphan.txt", "only the rejected attempt touches this")
	rejectedState, err := repo.Snapshot(mainWS.Path, &state.ID, time.Unix(2, 0))
	require.NoError(t, err)
	tr2, err := repo.Propose(&state.ID, rejectedState.ID, testIntent("rejected"), mainWS.Lane, types.CostRecord{}, time.Unix(2, 0))
	require.NoError(t, err)
	require.NoError(t, repo.Reject(tr2.ID, types.EvaluationResult{Summary: "no good"}, time.Unix(2, 0)))

	report, err := repo.GC(GCOptions{RejectedMaxAge: time.Nanosecond}, time.Unix(100, 0))
	require.NoError(t, err)
	assert.Positive(t, report.DeletableObjects, "the orphaned rejected-only tree/blob should be collectible")

	// The shared blob's content must still be readable through the live
	// state's tree after GC.
	writeFile(t, mainWS.Path, "keep.txt", "tampered")
	require.NoError(t, repo.Restore(types.MainWorkspaceName, state.ID, time.Unix(101, 0)))
	content, err := os.ReadFile(filepath.Join(mainWS.Path, "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "shared content that must survive", string(content))
}

func TestGC_DryRunDeletesNothing(t *testing.T) {
	repo := openTestRepo(t)
	mainWS, err := repo.Workspaces().Get(types.MainWorkspaceName)
	require.NoError(t, err)

	writeFile(t, mainWS.Path, "a.txt", "a")
	state, err := repo.Snapshot(mainWS.Path, mainWS.BaseState, time.Unix(1, 0))
	require.NoError(t, err)
	tr, err := repo.Propose(mainWS.BaseState, state.ID, testIntent("a"), mainWS.Lane, types.CostRecord{}, time.Unix(1, 0))
	require.NoError(t, err)
	require.NoError(t, repo.Reject(tr.ID, types.EvaluationResult{}, time.Unix(1, 0)))

	before, err := repo.GC(GCOptions{DryRun: true, RejectedMaxAge: time.Nanosecond}, time.Unix(100, 0))
	require.NoError(t, err)
	assert.Positive(t, before.DeletableObjects)

	after, err := repo.GC(GCOptions{DryRun: true, RejectedMaxAge: time.Nanosecond}, time.Unix(100, 0))
	require.NoError(t, err)
	assert.Equal(t, before, after, "a dry run must not change what a later run finds")
}
