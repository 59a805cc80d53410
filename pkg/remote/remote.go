// Package remote defines the capability interface external object-sync
// backends implement, plus a filesystem-cache backend used for local
// testing and single-machine staging (spec.md §9 "Remote backends ...
// compose a small capability set {put, get, exists, list, delete};
// present as a sealed interface").
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vexd/vexd/pkg/atomicfile"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// Backend is the sealed capability set a remote object store must
// implement. The core engine never depends on a concrete backend; it
// only ever talks to this interface, so swapping in an HTTP- or
// bucket-backed implementation requires no change to push/pull callers.
type Backend interface {
	Put(ctx context.Context, hash string, payload []byte) error
	Get(ctx context.Context, hash string) ([]byte, error)
	Exists(ctx context.Context, hash string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, hash string) error
}

// FSCache is a Backend over a local directory, fanned out one level deep
// by the hash's first two characters (spec.md §6 "remote_cache/<xx>/<hash>
// remote sync cache"). It exists for tests and single-machine staging
// before a networked backend is wired in.
type FSCache struct {
	dir string
}

// NewFSCache constructs a filesystem-backed remote cache rooted at dir.
func NewFSCache(dir string) *FSCache {
	return &FSCache{dir: dir}
}

func (c *FSCache) path(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(c.dir, hash)
	}
	return filepath.Join(c.dir, hash[0:2], hash)
}

func (c *FSCache) Put(_ context.Context, hash string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path(hash)), 0o755); err != nil {
		return fmt.Errorf("%w: create remote cache directory: %v", vexerrors.ErrIOFailure, err)
	}
	if err := atomicfile.Write(c.path(hash), payload, 0o644); err != nil {
		return fmt.Errorf("%w: write remote cache entry %s: %v", vexerrors.ErrIOFailure, hash, err)
	}
	return nil
}

func (c *FSCache) Get(_ context.Context, hash string) ([]byte, error) {
	data, err := os.ReadFile(c.path(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", vexerrors.ErrNotFound, hash)
		}
		return nil, fmt.Errorf("%w: read remote cache entry %s: %v", vexerrors.ErrIOFailure, hash, err)
	}
	return data, nil
}

func (c *FSCache) Exists(_ context.Context, hash string) (bool, error) {
	_, err := os.Stat(c.path(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat remote cache entry %s: %v", vexerrors.ErrIOFailure, hash, err)
}

func (c *FSCache) List(_ context.Context) ([]string, error) {
	var hashes []string
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			hashes = append(hashes, info.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list remote cache: %v", vexerrors.ErrIOFailure, err)
	}
	return hashes, nil
}

func (c *FSCache) Delete(_ context.Context, hash string) error {
	if err := os.Remove(c.path(hash)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete remote cache entry %s: %v", vexerrors.ErrIOFailure, hash, err)
	}
	return nil
}
