// Package types defines the core data structures shared across vexd: CAS
// objects, world states, intents, transitions, lanes, workspaces, and the
// auxiliary records (stat-cache entries, embeddings, budget config) that
// back them. See spec.md §3 for the authoritative data model.
package types

import "time"

// ObjectKind is the closed sum type over CAS object kinds (spec.md §3).
type ObjectKind string

const (
	KindBlob  ObjectKind = "blob"
	KindTree  ObjectKind = "tree"
	KindState ObjectKind = "state"
)

// Location records where an object's payload actually lives.
type Location string

const (
	LocationInline Location = "inline"
	LocationFS     Location = "fs"
)

// Object is an immutable content-addressed record. Payload always holds
// the content: for fs-located objects the store reads it from the fanout
// file.
type Object struct {
	Hash     string
	Kind     ObjectKind
	Size     int64
	Payload  []byte
	Location Location
}

// TreeEntryKind is the kind of a tree entry's child (spec.md §3: tree
// payload entry_kind).
type TreeEntryKind string

const (
	TreeEntryBlob TreeEntryKind = "blob"
	TreeEntryTree TreeEntryKind = "tree"
)

const (
	// DefaultTreeMode is applied to tree entries that omit a mode.
	DefaultTreeMode = 0o755
	// DefaultBlobMode is applied to blob entries that omit a mode.
	DefaultBlobMode = 0o644
)

// TreeEntry is one name -> (kind, hash, mode) mapping inside a tree
// object's canonical payload.
type TreeEntry struct {
	Name string        `json:"name"`
	Kind TreeEntryKind `json:"kind"`
	Hash string        `json:"hash"`
	Mode uint32        `json:"mode"`
}

// TransitionStatus is one of the five states a transition can be in
// (spec.md §3, §6 "Status values").
type TransitionStatus string

const (
	StatusProposed   TransitionStatus = "proposed"
	StatusEvaluating TransitionStatus = "evaluating"
	StatusAccepted   TransitionStatus = "accepted"
	StatusRejected   TransitionStatus = "rejected"
	StatusSuperseded TransitionStatus = "superseded"
)

// AgentIdentity records who made a change.
type AgentIdentity struct {
	AgentID   string  `json:"agent_id"`
	AgentType string  `json:"agent_type"`
	Model     *string `json:"model,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}

// Intent is a structured, immutable record of why a change was proposed.
type Intent struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt"`
	Agent       AgentIdentity  `json:"agent"`
	ContextRefs []string       `json:"context_refs,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// HasTag reports whether the intent carries the given tag.
func (i Intent) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EvaluationResult is the outcome of evaluating a proposed transition.
type EvaluationResult struct {
	Passed     bool            `json:"passed"`
	Evaluator  string          `json:"evaluator"`
	Checks     map[string]bool `json:"checks,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	DurationMS float64         `json:"duration_ms,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// CostRecord is the resource consumption attributed to a transition.
type CostRecord struct {
	TokensIn   int64   `json:"tokens_in,omitempty"`
	TokensOut  int64   `json:"tokens_out,omitempty"`
	APICalls   int64   `json:"api_calls,omitempty"`
	WallTimeMS float64 `json:"wall_time_ms,omitempty"`
}

// Add returns the element-wise sum of two cost records.
func (c CostRecord) Add(o CostRecord) CostRecord {
	return CostRecord{
		TokensIn:   c.TokensIn + o.TokensIn,
		TokensOut:  c.TokensOut + o.TokensOut,
		APICalls:   c.APICalls + o.APICalls,
		WallTimeMS: c.WallTimeMS + o.WallTimeMS,
	}
}

// State is an immutable snapshot record: a root tree plus a parent
// pointer, forming a DAG (spec.md §3).
type State struct {
	ID        string         `json:"id"`
	RootTree  string         `json:"root_tree"`
	ParentID  *string        `json:"parent_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Nonce     string         `json:"nonce"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Transition is the causal edge linking two states, carrying an intent
// and (eventually) an evaluation verdict.
type Transition struct {
	ID         string            `json:"id"`
	FromState  *string           `json:"from_state,omitempty"`
	ToState    string            `json:"to_state"`
	IntentID   string            `json:"intent_id"`
	Lane       string            `json:"lane"`
	Status     TransitionStatus  `json:"status"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`
	Cost       CostRecord        `json:"cost"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Lane is a named, independently-advancing line of work.
type Lane struct {
	Name      string         `json:"name"`
	HeadState *string        `json:"head_state,omitempty"`
	ForkBase  *string        `json:"fork_base,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// BudgetConfig is the per-lane resource ceiling stored in lane metadata
// (spec.md §3).
type BudgetConfig struct {
	MaxTokensIn    *int64  `json:"max_tokens_in,omitempty"`
	MaxTokensOut   *int64  `json:"max_tokens_out,omitempty"`
	MaxAPICalls    *int64  `json:"max_api_calls,omitempty"`
	MaxWallTimeMS  *int64  `json:"max_wall_time_ms,omitempty"`
	AlertThreshold float64 `json:"alert_threshold_pct,omitempty"`
}

// WorkspaceStatus is the lifecycle state of a workspace.
type WorkspaceStatus string

const (
	WorkspaceActive WorkspaceStatus = "active"
	WorkspaceIdle   WorkspaceStatus = "idle"
)

// Workspace is the metadata sidecar for an on-disk isolated directory
// (spec.md §3). The directory itself is not part of this record.
type Workspace struct {
	Name      string          `json:"name"`
	Lane      string          `json:"lane"`
	Path      string          `json:"path"`
	BaseState *string         `json:"base_state,omitempty"`
	Status    WorkspaceStatus `json:"status"`
	AgentID   *string         `json:"agent_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsMain reports whether this workspace is the repository root.
func (w Workspace) IsMain() bool {
	return w.Name == MainWorkspaceName
}

// MainWorkspaceName is the reserved workspace name denoting the
// repository root itself.
const MainWorkspaceName = "main"

// StatCacheEntry maps a file's (path, mtime, size) to its last known
// blob hash, letting snapshot skip re-reading unchanged files.
type StatCacheEntry struct {
	Path    string `json:"path"`
	MTimeNS int64  `json:"mtime_ns"`
	Size    int64  `json:"size"`
	Hash    string `json:"hash"`
}

// Embedding is a fixed-size float vector associated with an intent, for
// cosine-similarity search.
type Embedding struct {
	IntentID   string    `json:"intent_id"`
	Vector     []float32 `json:"-"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
}

// DiffAction classifies how a path changed between two states.
type DiffAction string

const (
	DiffAdded    DiffAction = "added"
	DiffRemoved  DiffAction = "removed"
	DiffModified DiffAction = "modified"
)

// PathChange describes a single path's change between two states.
type PathChange struct {
	Path       string
	Action     DiffAction
	BeforeHash string `json:"before_hash,omitempty"`
	BeforeMode uint32 `json:"before_mode,omitempty"`
	AfterHash  string `json:"after_hash,omitempty"`
	AfterMode  uint32 `json:"after_mode,omitempty"`
}

// Diff is the result of comparing two states path-by-path.
type Diff struct {
	Added          []PathChange
	Removed        []PathChange
	Modified       []PathChange
	UnchangedCount int
}

// ChangedPaths returns the set of paths touched by this diff, across all
// three actions — the set promote intersects to detect conflicts.
func (d Diff) ChangedPaths() map[string]DiffAction {
	out := make(map[string]DiffAction, len(d.Added)+len(d.Removed)+len(d.Modified))
	for _, c := range d.Added {
		out[c.Path] = DiffAdded
	}
	for _, c := range d.Removed {
		out[c.Path] = DiffRemoved
	}
	for _, c := range d.Modified {
		out[c.Path] = DiffModified
	}
	return out
}

// ConflictEntry is one path in a promote conflict report.
type ConflictEntry struct {
	Path         string     `json:"path"`
	LaneAction   DiffAction `json:"lane_action"`
	TargetAction DiffAction `json:"target_action"`
}
