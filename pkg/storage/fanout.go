package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vexd/vexd/pkg/atomicfile"
)

const (
	fanoutDirPerm  = 0o755
	fanoutFilePerm = 0o644
)

// writeBlobFile atomically writes payload to the fanout path for hash,
// creating any missing parent directories. It tmpfile-writes, fsyncs, then
// renames into place so a crash never leaves a partially-written blob
// visible at its final path — grounded on the tessera posix storage's
// createEx/overwrite pattern (temp file + fsync + atomic rename).
func (s *Store) writeBlobFile(hash string, payload []byte) error {
	target := s.fanoutPath(hash)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, fanoutDirPerm); err != nil {
		return fmt.Errorf("create blob directory %q: %w", dir, err)
	}

	if err := atomicfile.Write(target, payload, fanoutFilePerm); err != nil {
		return fmt.Errorf("write blob file %q: %w", target, err)
	}
	return nil
}

// readBlobFile reads the fanout payload for hash. A missing file after the
// objects bucket says it should exist is a storage-integrity failure, not
// an ordinary not-found — callers surface it as vexerrors.ErrIOFailure.
func (s *Store) readBlobFile(hash string) ([]byte, error) {
	data, err := os.ReadFile(s.fanoutPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s missing from fs fanout: %w", hash, err)
		}
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return data, nil
}

// blobFileExists reports whether a fanout file is present for hash without
// reading its contents.
func (s *Store) blobFileExists(hash string) bool {
	_, err := os.Stat(s.fanoutPath(hash))
	return err == nil
}

// removeBlobFile deletes the fanout file for hash, used by GC sweep. It is
// not an error for the file to already be gone.
func (s *Store) removeBlobFile(hash string) error {
	err := os.Remove(s.fanoutPath(hash))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob file %s: %w", hash, err)
	}
	return nil
}
