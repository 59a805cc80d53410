package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/log"
	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// lockOwner is the contents of owner.json inside a lock directory
// (spec.md §4.3 "Locking").
type lockOwner struct {
	AgentID    string    `json:"agent_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
}

// Acquire attempts to lock workspace name for agentID by atomically
// creating its lock directory. A stale lock (past lock_max_age, or same
// host with a dead PID) is reclaimed once before giving up.
func (m *Manager) Acquire(name, agentID string) (bool, error) {
	now := time.Now()

	ok, err := m.tryMkdir(name)
	if err != nil {
		return false, err
	}
	if !ok {
		owner, rerr := m.readLockOwner(name)
		if rerr != nil {
			// Lockdir exists but owner.json is unreadable/missing — treat
			// conservatively as held, not stale.
			return false, nil
		}
		if !m.isStale(owner) {
			return false, nil
		}
		if err := os.RemoveAll(m.lockDirFor(name)); err != nil {
			return false, fmt.Errorf("%w: remove stale lockdir for %q: %v", vexerrors.ErrIOFailure, name, err)
		}
		log.Logger.Info().Str("workspace", name).Str("prior_owner", owner.AgentID).Msg("reclaimed stale workspace lock")

		ok, err = m.tryMkdir(name)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if err := m.writeLockOwner(name, agentID, now); err != nil {
		return false, err
	}

	ws, err := m.readMetadata(name)
	if err == nil {
		ws.Status = types.WorkspaceActive
		ws.AgentID = &agentID
		ws.UpdatedAt = now
		if err := m.writeMetadata(ws); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *Manager) tryMkdir(name string) (bool, error) {
	err := os.Mkdir(m.lockDirFor(name), 0o755)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: create lockdir for %q: %v", vexerrors.ErrIOFailure, name, err)
}

// writeLockOwner atomically writes owner.json for an already-created
// lockdir. Marking the workspace active is left to Acquire.
func (m *Manager) writeLockOwner(name, agentID string, now time.Time) error {
	owner := lockOwner{
		AgentID:    agentID,
		AcquiredAt: now,
		PID:        os.Getpid(),
		Hostname:   hostname(),
	}
	encoded, err := serialize.CanonicalJSON(owner)
	if err != nil {
		return fmt.Errorf("encode lock owner: %w", err)
	}
	dest := m.lockDirFor(name) + "/owner.json"
	if err := atomicfile.Write(dest, encoded, 0o644); err != nil {
		return fmt.Errorf("%w: write lock owner: %v", vexerrors.ErrIOFailure, err)
	}
	return nil
}

func (m *Manager) readLockOwner(name string) (lockOwner, error) {
	raw, err := os.ReadFile(m.lockDirFor(name) + "/owner.json")
	if err != nil {
		return lockOwner{}, err
	}
	var o lockOwner
	if err := json.Unmarshal(raw, &o); err != nil {
		return lockOwner{}, err
	}
	return o, nil
}

// isStale reports whether a recorded lock owner is past lock_max_age or
// is the same host with a now-dead PID (spec.md §4.3 "Locking").
func (m *Manager) isStale(owner lockOwner) bool {
	if time.Since(owner.AcquiredAt) > m.lockMaxAge {
		return true
	}
	if owner.Hostname == hostname() && !processAlive(owner.PID) {
		return true
	}
	return false
}

// Release removes the lock directory and marks the workspace idle.
func (m *Manager) Release(name string) error {
	if err := os.RemoveAll(m.lockDirFor(name)); err != nil {
		return fmt.Errorf("%w: release lock for %q: %v", vexerrors.ErrIOFailure, name, err)
	}
	if ws, err := m.readMetadata(name); err == nil {
		ws.Status = types.WorkspaceIdle
		ws.AgentID = nil
		ws.UpdatedAt = time.Now()
		if err := m.writeMetadata(ws); err != nil {
			return err
		}
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// processAlive reports whether pid refers to a live process on this host.
// Signal 0 checks existence/permission without affecting the process.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
