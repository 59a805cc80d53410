// Package repository is the top-level facade tying the content store,
// world-state manager, and workspace manager together: instance locking,
// config validation, budget enforcement, promote, restore, and GC
// (spec.md §4.4 "Repository").
package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vexd/vexd/pkg/config"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
	"github.com/vexd/vexd/pkg/workspace"
	"github.com/vexd/vexd/pkg/worldstate"
)

// Repository is one open repository: its store, history engine,
// workspace manager, validated config, and held instance lock.
type Repository struct {
	Root     string
	storeDir string
	cfg      config.Config

	store *storage.Store
	world *worldstate.Manager
	ws    *workspace.Manager

	lock      instanceLock
	machineID string
}

func storeDirFor(root string) string {
	return filepath.Join(root, ".store")
}

// Init creates a new repository at root: the .store layout and a default
// config, then opens it, which registers the main workspace on the
// default lane with no base state. No initial state is created.
func Init(root string) (*Repository, error) {
	storeDir := storeDirFor(root)
	if _, err := os.Stat(storeDir); err == nil {
		return nil, fmt.Errorf("%w: %s already contains a repository", vexerrors.ErrIOFailure, root)
	}
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %v", vexerrors.ErrIOFailure, err)
	}
	if err := os.MkdirAll(filepath.Join(storeDir, "workspaces"), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create workspaces directory: %v", vexerrors.ErrIOFailure, err)
	}
	if err := os.MkdirAll(filepath.Join(storeDir, "templates"), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create templates directory: %v", vexerrors.ErrIOFailure, err)
	}

	cfg := config.Default()
	if err := config.Save(filepath.Join(storeDir, "config.json"), cfg); err != nil {
		return nil, err
	}

	return Open(root)
}

// Open opens an existing repository at root, validating its config and
// acquiring the instance lock. FindRoot should be used first when the
// caller doesn't already know root (spec.md §7 "NotARepository").
func Open(root string) (*Repository, error) {
	storeDir := storeDirFor(root)
	if _, err := os.Stat(storeDir); err != nil {
		return nil, fmt.Errorf("%w: no .store directory under %s", vexerrors.ErrNotARepository, root)
	}

	cfg, err := config.Load(filepath.Join(storeDir, "config.json"))
	if err != nil {
		return nil, err
	}

	machineID, err := loadOrCreateMachineID(storeDir)
	if err != nil {
		return nil, err
	}
	lock, err := acquireInstanceLock(storeDir, machineID)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(
		filepath.Join(storeDir, "store.db"),
		filepath.Join(storeDir, "blobs"),
		cfg.MaxBlobSize,
		cfg.BlobThreshold,
	)
	if err != nil {
		return nil, err
	}

	world := worldstate.New(store, cfg.MaxTreeDepth)
	ws := workspace.New(root, storeDir, world)

	repo := &Repository{
		Root:      root,
		storeDir:  storeDir,
		cfg:       cfg,
		store:     store,
		world:     world,
		ws:        ws,
		lock:      lock,
		machineID: machineID,
	}

	if _, err := os.Stat(filepath.Join(storeDir, "main.json")); err != nil {
		if _, err := ws.Create(types.MainWorkspaceName, cfg.DefaultLane, nil, nil, lock.StartedAt); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return repo, nil
}

// FindRoot walks up from start looking for a .store directory, the way a
// VCS finds its repository root from a nested working directory.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vexerrors.ErrIOFailure, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".store")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no .store directory found above %s", vexerrors.ErrNotARepository, start)
		}
		dir = parent
	}
}

// Close releases the store handle. It does not release the instance
// lock file — the lock persists until it ages out or its PID dies, by
// design (spec.md §4.4): a clean close is not what makes a lock stale.
func (r *Repository) Close() error {
	return r.store.Close()
}

// verifyWritable re-checks the instance lock before any write operation
// (spec.md §4.4 "On write operations ... re-verify the lock").
func (r *Repository) verifyWritable() error {
	return VerifyInstanceLock(r.storeDir, r.lock)
}

// Store exposes the underlying content store for CLI plumbing (cat-file,
// stats) that doesn't warrant a Repository-level wrapper.
func (r *Repository) Store() *storage.Store {
	return r.store
}

// World exposes the world-state manager.
func (r *Repository) World() *worldstate.Manager {
	return r.world
}

// Workspaces exposes the workspace manager.
func (r *Repository) Workspaces() *workspace.Manager {
	return r.ws
}

// Config returns the repository's validated configuration.
func (r *Repository) Config() config.Config {
	return r.cfg
}
