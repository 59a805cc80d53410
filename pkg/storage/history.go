package storage

import (
	"fmt"

	"github.com/vexd/vexd/pkg/serialize"
	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// PutState persists a State record. States are immutable once written;
// callers must not call PutState twice for the same ID with different
// content.
func (tx *Tx) PutState(s types.State) error {
	return putRecord(tx.btx.Bucket(bucketStates), s.ID, s)
}

// GetState loads a State by ID.
func (tx *Tx) GetState(id string) (types.State, error) {
	var s types.State
	err := getRecord(tx.btx.Bucket(bucketStates), id, &s)
	return s, err
}

// ListStateIDs returns every state ID, used by GC to find the states that
// nothing live reaches.
func (tx *Tx) ListStateIDs() ([]string, error) {
	return listKeys(tx.btx.Bucket(bucketStates))
}

// PutIntent persists an Intent record.
func (tx *Tx) PutIntent(i types.Intent) error {
	return putRecord(tx.btx.Bucket(bucketIntents), i.ID, i)
}

// GetIntent loads an Intent by ID.
func (tx *Tx) GetIntent(id string) (types.Intent, error) {
	var i types.Intent
	err := getRecord(tx.btx.Bucket(bucketIntents), id, &i)
	return i, err
}

// PutTransition persists a Transition record, creating or overwriting it —
// UpdateTransition is the usual path for status changes after creation.
func (tx *Tx) PutTransition(t types.Transition) error {
	return putRecord(tx.btx.Bucket(bucketTransitions), t.ID, t)
}

// GetTransition loads a Transition by ID.
func (tx *Tx) GetTransition(id string) (types.Transition, error) {
	var t types.Transition
	err := getRecord(tx.btx.Bucket(bucketTransitions), id, &t)
	return t, err
}

// UpdateTransition loads the transition, applies mutate, and persists the
// result — the single place status/evaluation/cost fields change after a
// transition is first proposed.
func (tx *Tx) UpdateTransition(id string, mutate func(*types.Transition) error) error {
	t, err := tx.GetTransition(id)
	if err != nil {
		return err
	}
	if err := mutate(&t); err != nil {
		return err
	}
	return tx.PutTransition(t)
}

// ListTransitionsByLane returns every transition recorded against lane, in
// no particular order — callers sort by CreatedAt if they need history
// order.
func (tx *Tx) ListTransitionsByLane(lane string) ([]types.Transition, error) {
	var out []types.Transition
	err := tx.btx.Bucket(bucketTransitions).ForEach(func(_, raw []byte) error {
		var t types.Transition
		if err := decodeJSON(raw, &t); err != nil {
			return err
		}
		if t.Lane == lane {
			out = append(out, t)
		}
		return nil
	})
	return out, err
}

// ListTransitions returns every transition in the repository, used by GC
// and by `vexctl history` when no lane is given.
func (tx *Tx) ListTransitions() ([]types.Transition, error) {
	var out []types.Transition
	err := tx.btx.Bucket(bucketTransitions).ForEach(func(_, raw []byte) error {
		var t types.Transition
		if err := decodeJSON(raw, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// PutLane creates or overwrites a Lane record.
func (tx *Tx) PutLane(l types.Lane) error {
	return putRecord(tx.btx.Bucket(bucketLanes), l.Name, l)
}

// GetLane loads a Lane by name.
func (tx *Tx) GetLane(name string) (types.Lane, error) {
	var l types.Lane
	err := getRecord(tx.btx.Bucket(bucketLanes), name, &l)
	return l, err
}

// DeleteLane removes a lane record. It is the raw storage op and does not
// check whether the lane has unmerged work.
func (tx *Tx) DeleteLane(name string) error {
	return tx.btx.Bucket(bucketLanes).Delete([]byte(name))
}

// ListLanes returns every lane.
func (tx *Tx) ListLanes() ([]types.Lane, error) {
	var out []types.Lane
	err := tx.btx.Bucket(bucketLanes).ForEach(func(_, raw []byte) error {
		var l types.Lane
		if err := decodeJSON(raw, &l); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

// putRecord canonical-JSON-encodes v and stores it under key in bucket.
func putRecord(bucket interface {
	Put(k, v []byte) error
}, key string, v any) error {
	encoded, err := serialize.CanonicalJSON(v)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	return bucket.Put([]byte(key), encoded)
}

// getRecord decodes the value stored under key in bucket into v.
func getRecord(bucket interface {
	Get(k []byte) []byte
}, key string, v any) error {
	raw := bucket.Get([]byte(key))
	if raw == nil {
		return fmt.Errorf("%w: %s", vexerrors.ErrNotFound, key)
	}
	return decodeJSON(raw, v)
}

// listKeys returns every key in bucket as strings.
func listKeys(bucket interface {
	ForEach(fn func(k, v []byte) error) error
}) ([]string, error) {
	var out []string
	err := bucket.ForEach(func(k, _ []byte) error {
		out = append(out, string(k))
		return nil
	})
	return out, err
}
