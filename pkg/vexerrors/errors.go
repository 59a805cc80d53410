// Package vexerrors defines the error taxonomy shared across vexd's
// storage, world-state, workspace, and repository packages (spec.md §7).
//
// Each kind is a distinct sentinel wrapped with context via fmt.Errorf's
// %w so callers can errors.Is against the kind while still getting a
// human-readable message.
package vexerrors

import "errors"

var (
	// ErrNotARepository is returned when no .store directory is found
	// walking up from the start path.
	ErrNotARepository = errors.New("not a repository")

	// ErrConfigInvalid is returned for a schema violation or a config
	// version newer than this binary supports.
	ErrConfigInvalid = errors.New("invalid repository config")

	// ErrLimitExceeded is returned when a blob exceeds max_blob_size or a
	// tree exceeds max_tree_depth.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrConcurrentAccess is returned when the instance lock is held by
	// another machine, or is no longer ours on re-verification.
	ErrConcurrentAccess = errors.New("concurrent access from another machine")

	// ErrBudgetExceeded is returned when a proposed cost would push a
	// lane's accumulated totals over a configured limit.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrConflict is returned by promote when path-level conflicts are
	// detected between the lane delta and the target delta.
	ErrConflict = errors.New("promote conflict")

	// ErrNotFound is returned when a hash, state, workspace, or lane name
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned when a lane, workspace, or template name
	// contains forbidden characters.
	ErrInvalidName = errors.New("invalid name")

	// ErrLockHeld is returned when a workspace lock is held by another
	// agent and is not stale.
	ErrLockHeld = errors.New("lock held by another agent")

	// ErrIOFailure is returned when a filesystem operation failed, the
	// database is unavailable, or metadata is corrupted.
	ErrIOFailure = errors.New("i/o failure")
)
