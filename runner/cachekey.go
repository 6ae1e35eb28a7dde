package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CacheKey computes the content-addressed cache key for a node invocation:
// SHA-256 over the tool ref, the canonicalized inputs, the canonicalized
// config, and an optional data version tag, each separated by a NUL byte so
// no two distinct tuples can collide by concatenation.
func CacheKey(toolRef string, inputs, config map[string]any, dataVersion string) (string, error) {
	canonInputs, err := canonicalJSON(inputs)
	if err != nil {
		return "", err
	}
	canonConfig, err := canonicalJSON(config)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(toolRef))
	h.Write([]byte{0})
	h.Write(canonInputs)
	h.Write([]byte{0})
	h.Write(canonConfig)
	h.Write([]byte{0})
	h.Write([]byte(dataVersion))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON renders v as JSON with every object's keys sorted, so two
// maps with identical content but differing iteration order hash identically.
func canonicalJSON(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize round-trips v through encoding/json so map[string]any values use
// the decoder's canonical representation, then sorts nested map keys by
// re-emitting them through an ordered structure (json.Marshal on a Go map
// already sorts keys for map[string]any, so this mainly guarantees nested
// maps are plain map[string]any rather than some unstable custom type).
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
