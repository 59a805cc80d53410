// Package serialize provides the canonical, deterministic JSON encoding
// used everywhere two independent call sites must hash-agree: tree
// canonicalization (spec.md §6 "Tree canonical form"), state-id
// derivation (§6 "State ID derivation"), and CAS payload hashing.
//
// Grounded on original_source/vex/serializable.py's sorted-key,
// no-float-surprises canonical form, reimplemented idiomatically on top
// of encoding/json's deterministic map-key ordering.
package serialize

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON encodes v as compact JSON with sorted object keys and no
// HTML escaping. encoding/json already sorts map[string]T keys and struct
// fields in declaration order; the only adjustment needed is disabling
// HTML escaping so bytes are stable regardless of encoding/json's escaper
// version, and stripping the trailing newline Encoder always appends.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
