package worldstate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// statePayload is the canonical JSON used to derive a state's hash
// (spec.md §6 "State ID derivation").
type statePayload struct {
	RootTree  string  `json:"root_tree"`
	ParentID  *string `json:"parent_id"`
	CreatedAt string  `json:"created_at"`
	Nonce     string  `json:"nonce"`
}

func newNonce() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateState stores a new State record over rootTree/parent, with a
// random nonce so two snapshots sharing a tree and timestamp still
// produce distinct IDs (spec.md §3 "State").
func (m *Manager) CreateState(tx *storage.Tx, rootTree string, parent *string, createdAt time.Time) (types.State, error) {
	nonce, err := newNonce()
	if err != nil {
		return types.State{}, err
	}

	payload := statePayload{
		RootTree:  rootTree,
		ParentID:  parent,
		CreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
		Nonce:     nonce,
	}
	encoded, err := serialize.CanonicalJSON(payload)
	if err != nil {
		return types.State{}, fmt.Errorf("canonicalize state payload: %w", err)
	}
	id := storage.ComputeHash(types.KindState, encoded)

	state := types.State{
		ID:        id,
		RootTree:  rootTree,
		ParentID:  parent,
		CreatedAt: createdAt,
		Nonce:     nonce,
	}
	if _, err := tx.PutObject(types.KindState, encoded); err != nil {
		return types.State{}, fmt.Errorf("store state payload: %w", err)
	}
	if err := tx.PutState(state); err != nil {
		return types.State{}, fmt.Errorf("persist state %s: %w", id, err)
	}
	return state, nil
}

// GetState loads a State by id.
func (m *Manager) GetState(tx *storage.Tx, id string) (types.State, error) {
	return tx.GetState(id)
}

// ValidateName rejects lane/workspace/template names containing path
// separators, NUL, or ".." (spec.md §3 "Lane", §7 "InvalidName").
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", vexerrors.ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q contains forbidden characters", vexerrors.ErrInvalidName, name)
	}
	return nil
}

// CreateLane inserts a new lane with head_state = fork_base = base
// (spec.md §4.2 "Lane management").
func (m *Manager) CreateLane(tx *storage.Tx, name string, base *string, now time.Time) (types.Lane, error) {
	if err := ValidateName(name); err != nil {
		return types.Lane{}, err
	}
	lane := types.Lane{
		Name:      name,
		HeadState: base,
		ForkBase:  base,
		CreatedAt: now,
	}
	if err := tx.PutLane(lane); err != nil {
		return types.Lane{}, fmt.Errorf("persist lane %s: %w", name, err)
	}
	return lane, nil
}

// GetLane loads a lane by name.
func (m *Manager) GetLane(tx *storage.Tx, name string) (types.Lane, error) {
	return tx.GetLane(name)
}

// ListLanes returns every lane.
func (m *Manager) ListLanes(tx *storage.Tx) ([]types.Lane, error) {
	return tx.ListLanes()
}

// LaneHead returns the lane's current head_state, or nil if the lane has
// none yet.
func (m *Manager) LaneHead(tx *storage.Tx, name string) (*string, error) {
	lane, err := tx.GetLane(name)
	if err != nil {
		return nil, err
	}
	return lane.HeadState, nil
}

// LaneForkBase returns the lane's fork_base, recorded at creation and
// never recomputed by graph walking (spec.md §3 "Lane").
func (m *Manager) LaneForkBase(tx *storage.Tx, name string) (*string, error) {
	lane, err := tx.GetLane(name)
	if err != nil {
		return nil, err
	}
	return lane.ForkBase, nil
}
