package worldstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// walkFile is one file discovered during the directory walk, carrying
// whatever is needed to either reuse a stat-cache hit or hash fresh
// content. The walk (walkDirectory) only reads the filesystem and the stat
// cache, and commitDir only touches the store, so between them the
// contents of cache-miss files are read concurrently, while all store
// writes land in one batch.
type walkFile struct {
	relPath string
	mode    uint32
	mtimeNS int64
	size    int64
	cached  string // non-empty if the stat cache already had this hash
	data    []byte // populated by Snapshot's read errgroup when cached == ""
}

type walkDir struct {
	relPath string
	mode    uint32
	files   []walkFile
	subdirs []*walkDir
}

// Snapshot walks root, respecting its ignore file and the default ignore
// set, and returns the root tree's hash (spec.md §4.2 "Directory
// hashing"). The walk runs under a read-only view; all resulting CAS
// writes run inside a single batch, so a snapshot is one database commit.
func (m *Manager) Snapshot(root string) (string, error) {
	ignores, err := loadIgnoreSet(root)
	if err != nil {
		return "", fmt.Errorf("%w: read ignore file: %v", vexerrors.ErrIOFailure, err)
	}

	// Phase 1: walk the filesystem and consult the stat cache under a
	// read-only snapshot — no writes yet.
	var tree *walkDir
	var cacheMisses []*walkFile
	err = m.store.View(func(tx *storage.Tx) error {
		d, err := m.walkDirectory(tx, root, "", 0, ignores, &cacheMisses)
		if err != nil {
			return err
		}
		tree = d
		return nil
	})
	if err != nil {
		return "", err
	}

	// Phase 2: read and hash cache-miss file contents concurrently; pure
	// CPU/IO work with no store interaction, safe to parallelize.
	grp := new(errgroup.Group)
	grp.SetLimit(8)
	for _, wf := range cacheMisses {
		wf := wf
		grp.Go(func() error {
			data, err := os.ReadFile(filepath.Join(root, wf.relPath))
			if err != nil {
				return fmt.Errorf("%w: read %s: %v", vexerrors.ErrIOFailure, wf.relPath, err)
			}
			wf.data = data
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return "", err
	}

	// Phase 3: a single batch turns the walked tree into CAS objects,
	// updating the stat cache for every file it had to hash fresh.
	var rootHash string
	err = m.store.Batch(func(tx *storage.Tx) error {
		h, err := m.commitDir(tx, tree)
		if err != nil {
			return err
		}
		rootHash = h
		return nil
	})
	return rootHash, err
}

func (m *Manager) walkDirectory(tx *storage.Tx, absRoot, relPath string, depth int, ignores *ignoreSet, misses *[]*walkFile) (*walkDir, error) {
	if depth > m.maxTreeDepth {
		return nil, fmt.Errorf("%w: directory depth exceeds max_tree_depth %d at %q", vexerrors.ErrLimitExceeded, m.maxTreeDepth, relPath)
	}

	absPath := filepath.Join(absRoot, relPath)
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir %s: %v", vexerrors.ErrIOFailure, absPath, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	d := &walkDir{relPath: relPath, mode: types.DefaultTreeMode}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("%w: stat %s: %v", vexerrors.ErrIOFailure, entry.Name(), err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue // never follow symlinks
		}

		childRel := entry.Name()
		if relPath != "" {
			childRel = relPath + "/" + entry.Name()
		}
		if ignores.matches(childRel, entry.IsDir()) {
			continue
		}

		if entry.IsDir() {
			sub, err := m.walkDirectory(tx, absRoot, childRel, depth+1, ignores, misses)
			if err != nil {
				return nil, err
			}
			d.subdirs = append(d.subdirs, sub)
			continue
		}

		mtimeNS := info.ModTime().UnixNano()
		size := info.Size()
		wf := walkFile{
			relPath: childRel,
			mode:    uint32(info.Mode().Perm()),
			mtimeNS: mtimeNS,
			size:    size,
		}
		if hash, ok := tx.StatCacheLookup(childRel, mtimeNS, size); ok {
			wf.cached = hash
		}
		d.files = append(d.files, wf)
	}

	// d.files is now final for this directory — safe to take stable
	// pointers into it for phase 2's concurrent hashing.
	for i := range d.files {
		if d.files[i].cached == "" {
			*misses = append(*misses, &d.files[i])
		}
	}
	return d, nil
}

// commitDir stores each file and subdirectory into the CAS and returns
// this directory's tree hash.
func (m *Manager) commitDir(tx *storage.Tx, d *walkDir) (string, error) {
	var entries []types.TreeEntry

	for i := range d.files {
		wf := &d.files[i]
		hash := wf.cached
		if hash == "" {
			h, err := tx.PutBlob(wf.data)
			if err != nil {
				return "", err
			}
			hash = h
			if err := tx.StatCachePut(wf.relPath, wf.mtimeNS, wf.size, hash); err != nil {
				return "", fmt.Errorf("update stat cache for %s: %w", wf.relPath, err)
			}
		}
		entries = append(entries, types.TreeEntry{
			Name: filepath.Base(wf.relPath),
			Kind: types.TreeEntryBlob,
			Hash: hash,
			Mode: wf.mode,
		})
	}

	for _, sub := range d.subdirs {
		hash, err := m.commitDir(tx, sub)
		if err != nil {
			return "", err
		}
		entries = append(entries, types.TreeEntry{
			Name: filepath.Base(sub.relPath),
			Kind: types.TreeEntryTree,
			Hash: hash,
			Mode: types.DefaultTreeMode,
		})
	}

	return tx.StoreTree(entries)
}
