package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// DefaultInstanceLockMaxAge is the staleness threshold for the instance
// lock (spec.md §4.4 "Instance lock (NFS safety)").
const DefaultInstanceLockMaxAge = 4 * time.Hour

// instanceLock is the JSON shape of .store/instance.lock.
type instanceLock struct {
	Hostname  string    `json:"hostname"`
	PID       int       `json:"pid"`
	MachineID string    `json:"machine_id"`
	StartedAt time.Time `json:"started_at"`
}

func instanceLockPath(storeDir string) string {
	return filepath.Join(storeDir, "instance.lock")
}

// machineIDPath is where a stable per-machine identifier is cached
// (spec.md's machine_id is opaque; this engine derives and persists one
// under the store directory rather than depending on a platform API that
// may be unavailable in a container).
func machineIDPath(storeDir string) string {
	return filepath.Join(storeDir, "machine_id")
}

func loadOrCreateMachineID(storeDir string) (string, error) {
	path := machineIDPath(storeDir)
	if data, err := os.ReadFile(path); err == nil {
		return string(data), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: read machine id: %v", vexerrors.ErrIOFailure, err)
	}

	id := uuid.NewString()
	if err := atomicfile.Write(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("%w: write machine id: %v", vexerrors.ErrIOFailure, err)
	}
	return id, nil
}

// acquireInstanceLock writes (or re-verifies) .store/instance.lock,
// raising ConcurrentAccess if a non-stale foreign lock is found
// (spec.md §4.4 "Instance lock").
func acquireInstanceLock(storeDir, machineID string) (instanceLock, error) {
	path := instanceLockPath(storeDir)
	mine := instanceLock{
		Hostname:  hostname(),
		PID:       os.Getpid(),
		MachineID: machineID,
		StartedAt: time.Now(),
	}

	if existing, err := readInstanceLock(path); err == nil {
		if !isLockStale(existing) {
			if existing.MachineID != machineID {
				return instanceLock{}, fmt.Errorf("%w: repository locked by machine %s (host %s, pid %d)",
					vexerrors.ErrConcurrentAccess, existing.MachineID, existing.Hostname, existing.PID)
			}
			// Same machine: local database concurrency handles multiple
			// processes, so proceed and refresh the lock record.
		}
	}

	if err := writeInstanceLock(path, mine); err != nil {
		return instanceLock{}, err
	}
	return mine, nil
}

// VerifyInstanceLock re-checks that the lock on disk is still ours,
// raising ConcurrentAccess otherwise. Called before every write operation
// (spec.md §4.4 "On write operations ... re-verify the lock").
func VerifyInstanceLock(storeDir string, mine instanceLock) error {
	existing, err := readInstanceLock(instanceLockPath(storeDir))
	if err != nil {
		return fmt.Errorf("%w: re-read instance lock: %v", vexerrors.ErrIOFailure, err)
	}
	if existing.MachineID != mine.MachineID || existing.PID != mine.PID || !existing.StartedAt.Equal(mine.StartedAt) {
		return fmt.Errorf("%w: instance lock is no longer ours (now held by machine %s, host %s, pid %d)",
			vexerrors.ErrConcurrentAccess, existing.MachineID, existing.Hostname, existing.PID)
	}
	return nil
}

func readInstanceLock(path string) (instanceLock, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return instanceLock{}, err
	}
	var lock instanceLock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return instanceLock{}, err
	}
	return lock, nil
}

func writeInstanceLock(path string, lock instanceLock) error {
	encoded, err := serialize.CanonicalJSON(lock)
	if err != nil {
		return fmt.Errorf("encode instance lock: %w", err)
	}
	if err := atomicfile.Write(path, encoded, 0o644); err != nil {
		return fmt.Errorf("%w: write instance lock: %v", vexerrors.ErrIOFailure, err)
	}
	return nil
}

// isLockStale mirrors the workspace lock's staleness rule: too old, or
// same host with a dead PID (spec.md §4.4 "A lock is stale if ...").
func isLockStale(lock instanceLock) bool {
	if time.Since(lock.StartedAt) > DefaultInstanceLockMaxAge {
		return true
	}
	if lock.Hostname == hostname() && !processAlive(lock.PID) {
		return true
	}
	return false
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
