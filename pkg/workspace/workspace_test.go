package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/worldstate"
)

type testFixture struct {
	store    *storage.Store
	ws       *worldstate.Manager
	mgr      *Manager
	repoRoot string
}

func newFixture(t *testing.T) testFixture {
	t.Helper()
	repoRoot := t.TempDir()
	storeDir := filepath.Join(repoRoot, ".store")
	require.NoError(t, os.MkdirAll(storeDir, 0o755))

	s, err := storage.Open(filepath.Join(storeDir, "vexd.db"), filepath.Join(storeDir, "blobs"), 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	wm := worldstate.New(s, 0)
	return testFixture{store: s, ws: wm, mgr: New(repoRoot, storeDir, wm), repoRoot: repoRoot}
}

// stateWithFile creates a state whose tree has a single file at path with
// the given content, returning the new state's ID.
func (f testFixture) stateWithFile(t *testing.T, path, content string, parent *string) string {
	t.Helper()
	var id string
	err := f.store.Batch(func(tx *storage.Tx) error {
		hash, err := tx.PutBlob([]byte(content))
		if err != nil {
			return err
		}
		treeHash, err := tx.StoreTree([]types.TreeEntry{{Name: path, Kind: types.TreeEntryBlob, Hash: hash, Mode: 0o644}})
		if err != nil {
			return err
		}
		state, err := f.ws.CreateState(tx, treeHash, parent, time.Unix(1, 0))
		if err != nil {
			return err
		}
		id = state.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func TestCreate_MainWorkspaceMaterializesAtRepoRoot(t *testing.T) {
	f := newFixture(t)
	stateID := f.stateWithFile(t, "hello.txt", "hello", nil)

	ws, err := f.mgr.Create(types.MainWorkspaceName, "main", &stateID, nil, time.Unix(2, 0))
	require.NoError(t, err)
	assert.Equal(t, f.repoRoot, ws.Path)

	content, err := os.ReadFile(filepath.Join(f.repoRoot, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	_, err = os.Stat(filepath.Join(f.repoRoot, DirtyMarkerName))
	assert.True(t, os.IsNotExist(err), "dirty marker must be cleared after a clean materialize")
}

func TestCreate_NonMainWorkspaceRejectsDuplicateName(t *testing.T) {
	f := newFixture(t)
	stateID := f.stateWithFile(t, "a.txt", "a", nil)

	_, err := f.mgr.Create("feature", "feature-lane", &stateID, nil, time.Unix(2, 0))
	require.NoError(t, err)

	_, err = f.mgr.Create("feature", "feature-lane", &stateID, nil, time.Unix(3, 0))
	assert.Error(t, err, "creating a workspace whose metadata already exists must fail")
}

func TestList_SkipsCorruptMetadataWithoutFailingWholeListing(t *testing.T) {
	f := newFixture(t)
	stateID := f.stateWithFile(t, "a.txt", "a", nil)

	_, err := f.mgr.Create(types.MainWorkspaceName, "main", nil, nil, time.Unix(2, 0))
	require.NoError(t, err)
	_, err = f.mgr.Create("good", "lane-good", &stateID, nil, time.Unix(2, 0))
	require.NoError(t, err)

	corruptPath := filepath.Join(f.repoRoot, ".store", "workspaces", "bad.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("not json"), 0o644))

	list, err := f.mgr.List()
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, ws := range list {
		names = append(names, ws.Name)
	}
	assert.Contains(t, names, types.MainWorkspaceName)
	assert.Contains(t, names, "good")
	assert.NotContains(t, names, "bad")
}

func TestAcquireRelease_SecondAcquireFailsUntilReleased(t *testing.T) {
	f := newFixture(t)
	stateID := f.stateWithFile(t, "a.txt", "a", nil)
	_, err := f.mgr.Create("feature", "feature-lane", &stateID, nil, time.Unix(2, 0))
	require.NoError(t, err)

	ok, err := f.mgr.Acquire("feature", "agent-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.mgr.Acquire("feature", "agent-2")
	require.NoError(t, err)
	assert.False(t, ok, "a held lock must not be acquirable by another agent")

	require.NoError(t, f.mgr.Release("feature"))

	ok, err = f.mgr.Acquire("feature", "agent-2")
	require.NoError(t, err)
	assert.True(t, ok, "a released lock must be acquirable again")
}

func TestAcquire_ReclaimsLockPastMaxAge(t *testing.T) {
	f := newFixture(t)
	f.mgr.SetLockMaxAge(time.Millisecond)
	stateID := f.stateWithFile(t, "a.txt", "a", nil)
	_, err := f.mgr.Create("feature", "feature-lane", &stateID, nil, time.Unix(2, 0))
	require.NoError(t, err)

	ok, err := f.mgr.Acquire("feature", "agent-1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	ok, err = f.mgr.Acquire("feature", "agent-2")
	require.NoError(t, err)
	assert.True(t, ok, "a lock older than lock_max_age must be reclaimed")
}

func TestUpdate_AppliesOnlyChangedPaths(t *testing.T) {
	f := newFixture(t)
	s1 := f.stateWithFile(t, "a.txt", "first", nil)
	ws, err := f.mgr.Create("feature", "feature-lane", &s1, nil, time.Unix(2, 0))
	require.NoError(t, err)

	untouched := filepath.Join(ws.Path, "untouched.txt")
	require.NoError(t, os.WriteFile(untouched, []byte("keep me"), 0o644))

	s2 := f.stateWithFile(t, "a.txt", "second", &s1)
	require.NoError(t, f.mgr.Update("feature", s2, time.Unix(3, 0)))

	content, err := os.ReadFile(filepath.Join(ws.Path, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	content, err = os.ReadFile(untouched)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(content), "update must not touch paths the diff didn't mention")

	updated, err := f.mgr.Get("feature")
	require.NoError(t, err)
	require.NotNil(t, updated.BaseState)
	assert.Equal(t, s2, *updated.BaseState)
}

func TestRecover_RebuildsWorkspaceWithLeftoverDirtyMarker(t *testing.T) {
	f := newFixture(t)
	s1 := f.stateWithFile(t, "a.txt", "content", nil)
	ws, err := f.mgr.Create("feature", "feature-lane", &s1, nil, time.Unix(2, 0))
	require.NoError(t, err)

	// Simulate a crash mid-materialize: drop the dirty marker and corrupt
	// the file under its watch.
	require.NoError(t, f.mgr.writeDirtyMarker(ws.Path, dirtyMarker{ToState: s1, StartedAt: time.Unix(3, 0)}))
	require.NoError(t, os.WriteFile(filepath.Join(ws.Path, "a.txt"), []byte("corrupted"), 0o644))

	report, err := f.mgr.Recover()
	require.NoError(t, err)
	assert.Contains(t, report.Recovered, "feature")
	assert.Empty(t, report.Failed)

	content, err := os.ReadFile(filepath.Join(ws.Path, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))

	_, err = os.Stat(filepath.Join(ws.Path, DirtyMarkerName))
	assert.True(t, os.IsNotExist(err))
}

func TestRemove_DeletesDirectoryAndMetadataButNotMain(t *testing.T) {
	f := newFixture(t)
	s1 := f.stateWithFile(t, "a.txt", "content", nil)
	ws, err := f.mgr.Create("feature", "feature-lane", &s1, nil, time.Unix(2, 0))
	require.NoError(t, err)

	require.NoError(t, f.mgr.Remove("feature"))
	_, err = os.Stat(ws.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = f.mgr.Get("feature")
	assert.Error(t, err)

	assert.Error(t, f.mgr.Remove(types.MainWorkspaceName))
}
