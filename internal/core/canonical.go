package core

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// CanonicalJSON renders v as JSON with map keys sorted, so the same logical
// payload always serializes to the same bytes regardless of map iteration
// order. encoding/json already sorts map[string]any keys; canonicalizeValue
// only has to normalize nested maps recursively before marshaling, since a
// value produced from json.Unmarshal or built ad hoc may embed map[string]any
// at any depth.
func CanonicalJSON(v any) ([]byte, error) {
	normalized := canonicalizeValue(v)
	return json.Marshal(normalized)
}

func canonicalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = canonicalizeValue(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return v
	}
}

// SHA1Hex returns the hex-encoded SHA-1 digest of data, used for tx_hash
// (spec §4.10) where any cryptographic hash of the canonical payload serves
// purely as a dedup key, not a security boundary.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SHA256Hex returns the hex-encoded SHA-256 digest of data, used for
// assets_hash (spec §4.8).
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
