package workspace

import (
	"fmt"
	"os"
	"time"

	"github.com/vexd/vexd/pkg/log"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// RecoveryReport summarizes what a Recover sweep found and fixed.
type RecoveryReport struct {
	Recovered []string
	Failed    map[string]error
}

// Recover scans every workspace for a leftover dirty marker (signaling a
// crash mid-materialize/update) and rebuilds it from its recorded base
// state: remove the directory, recreate, and re-materialize
// (spec.md §8 S5 "crash mid-materialize").
func (m *Manager) Recover() (RecoveryReport, error) {
	report := RecoveryReport{Failed: map[string]error{}}

	workspaces, err := m.List()
	if err != nil {
		return report, err
	}

	for _, ws := range workspaces {
		if !m.hasDirtyMarker(ws.Path) {
			continue
		}
		if err := m.recoverOne(ws); err != nil {
			report.Failed[ws.Name] = err
			continue
		}
		report.Recovered = append(report.Recovered, ws.Name)
	}
	return report, nil
}

func (m *Manager) recoverOne(ws types.Workspace) error {
	log.Logger.Warn().Str("workspace", ws.Name).Msg("recovering workspace after interrupted materialize")

	if ws.BaseState == nil {
		return fmt.Errorf("%w: workspace %q has a dirty marker but no base state to recover from", vexerrors.ErrIOFailure, ws.Name)
	}

	isMain := ws.Name == types.MainWorkspaceName
	if !isMain {
		if err := os.RemoveAll(ws.Path); err != nil {
			return fmt.Errorf("%w: remove workspace directory for recovery: %v", vexerrors.ErrIOFailure, err)
		}
		if err := os.MkdirAll(ws.Path, 0o755); err != nil {
			return fmt.Errorf("%w: recreate workspace directory: %v", vexerrors.ErrIOFailure, err)
		}
	}

	err := m.ws.Store().View(func(tx *storage.Tx) error {
		return m.ws.Materialize(tx, *ws.BaseState, ws.Path, isMain)
	})
	if err != nil {
		return err
	}

	if err := m.clearDirtyMarker(ws.Path); err != nil {
		return err
	}

	ws.Status = types.WorkspaceIdle
	ws.UpdatedAt = time.Now()
	return m.writeMetadata(ws)
}
