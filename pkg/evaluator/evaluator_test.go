package evaluator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/vexerrors"
)

func TestRun_ParsesPassingVerdict(t *testing.T) {
	spec := Spec{
		Name:    "ok-check",
		Command: []string{"sh", "-c", `echo '{"passed":true,"checks":{"lint":true},"summary":"all good"}'`},
	}
	result, err := Run(context.Background(), spec, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, "ok-check", result.Evaluator)
	assert.Equal(t, "all good", result.Summary)
	assert.True(t, result.Checks["lint"])
}

func TestRun_ParsesFailingVerdict(t *testing.T) {
	spec := Spec{
		Name:    "fail-check",
		Command: []string{"sh", "-c", `echo '{"passed":false,"summary":"lint failed"}'`},
	}
	result, err := Run(context.Background(), spec, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, "lint failed", result.Summary)
}

func TestRun_NonJSONStdoutIsFailureNotIOError(t *testing.T) {
	spec := Spec{Name: "garbage", Command: []string{"sh", "-c", `echo 'not json at all'`}}
	result, err := Run(context.Background(), spec, t.TempDir())
	require.NoError(t, err, "an untrusted evaluator producing garbage must not surface as an IO error")
	assert.False(t, result.Passed)
	assert.Contains(t, result.Summary, "no parseable verdict")
}

func TestRun_NonZeroExitWithoutJSONIsFailure(t *testing.T) {
	spec := Spec{Name: "broken", Command: []string{"sh", "-c", `exit 1`}}
	result, err := Run(context.Background(), spec, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Summary, "exited with error")
}

func TestRun_TimeoutProducesFailingResultNotError(t *testing.T) {
	spec := Spec{
		Name:    "slow",
		Command: []string{"sh", "-c", "sleep 5"},
		Timeout: 20 * time.Millisecond,
	}
	result, err := Run(context.Background(), spec, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Summary, "timed out")
}

func TestRun_NoCommandIsConfigError(t *testing.T) {
	_, err := Run(context.Background(), Spec{Name: "empty"}, t.TempDir())
	assert.ErrorIs(t, err, vexerrors.ErrConfigInvalid)
}

func TestRun_RunsWithWorkspaceDirAsCWD(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "pwd-check", Command: []string{"sh", "-c", `echo "{\"passed\": true, \"summary\": \"$(pwd)\"}"`}}
	result, err := Run(context.Background(), spec, dir)
	require.NoError(t, err)
	assert.True(t, result.Passed)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(result.Summary)
	require.NoError(t, err)
	assert.Equal(t, want, got, "the evaluator must run with the workspace directory as its working directory")
}
