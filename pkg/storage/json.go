package storage

import "encoding/json"

// decodeJSON unmarshals a bucket value. All bucket values are written via
// pkg/serialize.CanonicalJSON, but reading back only needs ordinary
// encoding/json since key order is irrelevant once decoded.
func decodeJSON(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}
