package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexd/vexd/pkg/vexerrors"
)

func TestDefault_UsesMainLane(t *testing.T) {
	c := Default()
	assert.Equal(t, CurrentVersion, c.Version)
	assert.Equal(t, "main", c.DefaultLane)
}

func TestLoad_RoundTripsThroughSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, Save(path, Config{Version: CurrentVersion, DefaultLane: "main", MaxBlobSize: 1024}))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.DefaultLane)
	assert.Equal(t, int64(1024), loaded.MaxBlobSize)
}

func TestLoad_EmptyDefaultLaneFilledIn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1"}`), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.DefaultLane)
}

func TestLoad_NewerVersionRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"99"}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, vexerrors.ErrConfigInvalid)
}

func TestValidate_RejectsNegativeLimits(t *testing.T) {
	assert.ErrorIs(t, Config{MaxBlobSize: -1}.Validate(), vexerrors.ErrConfigInvalid)
	assert.ErrorIs(t, Config{MaxTreeDepth: -1}.Validate(), vexerrors.ErrConfigInvalid)
	assert.ErrorIs(t, Config{BlobThreshold: -1}.Validate(), vexerrors.ErrConfigInvalid)
}

func TestLoad_UnrecognizedKeyIsIgnoredNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1","totally_unknown_key":true}`), 0o644))

	_, err := Load(path)
	require.NoError(t, err)
}
