// Package determinism provides primitives for guaranteeing deterministic execution.
// Calculators use these instead of Go built-ins wherever ordering or identity
// must be reproducible across runs.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// StableID is a hash-based identifier that is the same for the same inputs
type StableID string

// IDGenerator generates stable, deterministic IDs
type IDGenerator struct {
	namespace string
}

// NewIDGenerator creates an ID generator with a namespace
func NewIDGenerator(namespace string) *IDGenerator {
	return &IDGenerator{namespace: namespace}
}

// Generate creates a stable ID from inputs
func (g *IDGenerator) Generate(parts ...string) StableID {
	h := sha256.New()
	h.Write([]byte(g.namespace))
	h.Write([]byte{0}) // Separator
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0}) // Separator
	}
	return StableID(hex.EncodeToString(h.Sum(nil))[:16])
}

// Fingerprint hashes the JSON encoding of v. encoding/json writes struct
// fields in declaration order and map keys sorted, so equal values give
// equal fingerprints.
func Fingerprint(namespace string, v any) (StableID, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return NewIDGenerator(namespace).Generate(string(data)), nil
}

// SortSlice sorts a slice in a stable, deterministic manner.
// Elements that compare equal keep their input order.
func SortSlice[T any](slice []T, less func(a, b T) bool) {
	sort.SliceStable(slice, func(i, j int) bool {
		return less(slice[i], slice[j])
	})
}
