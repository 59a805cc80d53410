// Package config reads and validates the repository's .store/config.json
// (spec.md §6 ".store/config.json recognized keys").
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vexd/vexd/pkg/log"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// CurrentVersion is the highest config schema version this binary
// understands. Opening a repository whose config.version is newer fails
// closed rather than guessing at unknown semantics.
const CurrentVersion = "1"

// Config is the decoded, validated shape of .store/config.json.
type Config struct {
	Version       string  `json:"version"`
	DefaultLane   string  `json:"default_lane"`
	CreatedAt     float64 `json:"created_at"`
	MaxBlobSize   int64   `json:"max_blob_size"`
	MaxTreeDepth  int     `json:"max_tree_depth"`
	BlobThreshold int64   `json:"blob_threshold"`

	// Optional subsystem keys, carried through but not interpreted by the
	// core engine.
	Evaluators        json.RawMessage `json:"evaluators,omitempty"`
	RemoteStorage     json.RawMessage `json:"remote_storage,omitempty"`
	EmbeddingAPIURL   string          `json:"embedding_api_url,omitempty"`
	EmbeddingAPIKey   string          `json:"embedding_api_key,omitempty"`
	EmbeddingModel    string          `json:"embedding_model,omitempty"`
	EmbeddingDims     int             `json:"embedding_dimensions,omitempty"`
	APIToken          string          `json:"api_token,omitempty"`
	GitCoexistence    bool            `json:"git_coexistence,omitempty"`

	// unknownKeys is populated during Load for forward-compat logging; it
	// is never written back out.
	unknownKeys []string
}

const defaultLane = "main"

// Default returns the config written for a freshly initialized repository.
func Default() Config {
	return Config{
		Version:     CurrentVersion,
		DefaultLane: defaultLane,
	}
}

// Load reads and validates the config file at path. Zero values for
// MaxBlobSize/MaxTreeDepth mean "use default" and are left as zero for the
// caller (storage.DefaultMaxBlobSize etc.) to fill in; negative values are
// rejected outright.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config: %v", vexerrors.ErrIOFailure, err)
	}

	var known Config
	if err := json.Unmarshal(raw, &known); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %v", vexerrors.ErrConfigInvalid, err)
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err == nil {
		known.unknownKeys = unknownKeys(generic)
		for _, k := range known.unknownKeys {
			log.Logger.Warn().Str("key", k).Msg("config: unrecognized key ignored")
		}
	}

	if err := known.Validate(); err != nil {
		return Config{}, err
	}
	if known.DefaultLane == "" {
		known.DefaultLane = defaultLane
	}
	return known, nil
}

var recognizedKeys = map[string]bool{
	"version": true, "default_lane": true, "created_at": true,
	"max_blob_size": true, "max_tree_depth": true, "blob_threshold": true,
	"evaluators": true, "remote_storage": true,
	"embedding_api_url": true, "embedding_api_key": true,
	"embedding_model": true, "embedding_dimensions": true,
	"api_token": true, "git_coexistence": true,
}

func unknownKeys(generic map[string]json.RawMessage) []string {
	var out []string
	for k := range generic {
		if !recognizedKeys[k] {
			out = append(out, k)
		}
	}
	return out
}

// Validate rejects a config the engine must refuse to open with
// (spec.md §4.4 "Config validation").
func (c Config) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("%w: config version %q newer than supported %q", vexerrors.ErrConfigInvalid, c.Version, CurrentVersion)
	}
	if c.MaxBlobSize < 0 {
		return fmt.Errorf("%w: max_blob_size must not be negative", vexerrors.ErrConfigInvalid)
	}
	if c.MaxTreeDepth < 0 {
		return fmt.Errorf("%w: max_tree_depth must not be negative", vexerrors.ErrConfigInvalid)
	}
	if c.BlobThreshold < 0 {
		return fmt.Errorf("%w: blob_threshold must not be negative", vexerrors.ErrConfigInvalid)
	}
	return nil
}

// Save atomically writes c to path (temp file + rename).
func Save(path string, c Config) error {
	encoded, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return fmt.Errorf("%w: write temp config: %v", vexerrors.ErrIOFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename config into place: %v", vexerrors.ErrIOFailure, err)
	}
	return nil
}
