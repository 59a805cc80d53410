package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vexd/vexd/pkg/types"
)

// ComputeHash derives a content address from a type-prefixed, length-
// delimited payload: sha256("<kind>:<len(payload)>:" + payload), hex
// encoded (spec.md §3 "Hash derivation"). Prefixing with kind and length
// keeps a blob and a tree that happen to share bytes from colliding, and
// stops length-extension-style ambiguity between adjacent payloads.
func ComputeHash(kind types.ObjectKind, payload []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:", kind, len(payload))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
