// Package evaluator runs an external command against a materialized
// workspace and parses its verdict — the subprocess evaluator runner
// from spec.md §2 "Auxiliary" and §6 ".store/config.json evaluators".
//
// Grounded on the subprocess-with-timeout-and-captured-output pattern
// used for exec-based health checks elsewhere in the ambient stack, here
// adapted from "is a daemon alive" to "did this one evaluation pass".
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// DefaultTimeout is the per-evaluator timeout applied when a Spec leaves
// Timeout unset (spec.md §5 "a subprocess evaluator has a per-evaluator
// timeout (default 300 s)").
const DefaultTimeout = 300 * time.Second

// Spec configures one evaluator: a command run against a workspace
// directory, expected to print a JSON verdict on stdout.
type Spec struct {
	Name    string
	Command []string
	Timeout time.Duration
}

// verdictPayload is the JSON shape an evaluator command is expected to
// print to stdout: {"passed": bool, "checks": {...}, "summary": "..."}.
type verdictPayload struct {
	Passed  bool            `json:"passed"`
	Checks  map[string]bool `json:"checks,omitempty"`
	Summary string          `json:"summary,omitempty"`
}

// Run executes spec.Command with workspaceDir as its working directory,
// enforcing spec.Timeout (or DefaultTimeout), and parses stdout as a
// verdict payload. A non-JSON or missing-JSON stdout is treated as a
// failing evaluation with the raw output captured as the summary, not an
// IOFailure — evaluators are untrusted external programs.
func Run(ctx context.Context, spec Spec, workspaceDir string) (types.EvaluationResult, error) {
	if len(spec.Command) == 0 {
		return types.EvaluationResult{}, fmt.Errorf("%w: evaluator %q has no command", vexerrors.ErrConfigInvalid, spec.Name)
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = workspaceDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return types.EvaluationResult{
			Passed:     false,
			Evaluator:  spec.Name,
			Summary:    fmt.Sprintf("evaluator %q timed out after %s", spec.Name, timeout),
			DurationMS: float64(duration.Milliseconds()),
		}, nil
	}

	var verdict verdictPayload
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &verdict); err != nil {
		summary := stderr.String()
		if summary == "" {
			summary = stdout.String()
		}
		if runErr != nil {
			summary = fmt.Sprintf("evaluator %q exited with error: %v (%s)", spec.Name, runErr, summary)
		} else {
			summary = fmt.Sprintf("evaluator %q produced no parseable verdict: %s", spec.Name, summary)
		}
		return types.EvaluationResult{
			Passed:     false,
			Evaluator:  spec.Name,
			Summary:    summary,
			DurationMS: float64(duration.Milliseconds()),
		}, nil
	}

	return types.EvaluationResult{
		Passed:     verdict.Passed,
		Evaluator:  spec.Name,
		Checks:     verdict.Checks,
		Summary:    verdict.Summary,
		DurationMS: float64(duration.Milliseconds()),
	}, nil
}
