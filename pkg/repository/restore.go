package repository

import "time"

// Restore moves a workspace's materialized contents to newState by tree
// diff, delegating entirely to the workspace manager (spec.md §4.4
// "Restore. Delegates to WorkspaceManager.update").
func (r *Repository) Restore(workspaceName, newState string, now time.Time) error {
	if err := r.verifyWritable(); err != nil {
		return err
	}
	return r.ws.Update(workspaceName, newState, now)
}
