// Package store is the online feature store: a key/value cache mapping an
// entity id to its feature vector. The production backend is Redis; MemStore
// serves tests and standalone runs. Vectors are written by the external
// feature-engineering job and read back on the serving path, so both sides
// share the key format and the versioned codec.
package store

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors. Backend failures not covered below are returned wrapped
// with backend context.
var (
	// ErrNotFound reports a key that was never set or was evicted externally.
	ErrNotFound = errors.New("entity not found")
	// ErrCodec reports a stored payload that cannot be decoded against the
	// schema: wrong envelope version, missing or undeclared features.
	// Surfaced instead of silently defaulting, which would corrupt inference.
	ErrCodec = errors.New("feature payload does not match schema")
	// ErrTimeout reports a backend call that exceeded the configured deadline.
	ErrTimeout = errors.New("store timeout")
)

// Entry is one (entity, vector) pair for batch writes.
type Entry struct {
	ID       string
	Features map[string]float64
}

// Store is the feature-store contract shared by the serving loop and the
// bulk loader. Implementations are safe for concurrent use.
type Store interface {
	// Set serializes the vector and writes it, overwriting any prior value.
	Set(ctx context.Context, id string, features map[string]float64) error
	// Get returns the stored vector, or ErrNotFound.
	Get(ctx context.Context, id string) (map[string]float64, error)
	// BatchSet writes all entries. On failure the whole batch fails and the
	// returned count reports how many entries were written before the error;
	// there is no silent partial commit.
	BatchSet(ctx context.Context, entries []Entry) (written int, err error)
	// BatchGet resolves each key independently: present keys appear in the
	// result, absent keys are simply omitted. A missing key never fails the
	// call or disturbs other keys' results.
	BatchGet(ctx context.Context, ids []string) (map[string]map[string]float64, error)
	// EntityIDs lists all entity ids currently stored.
	EntityIDs(ctx context.Context) ([]string, error)
	// Ping probes the backend.
	Ping(ctx context.Context) error
	// Close releases backend connections.
	Close() error
}

// Key returns the backing-store key for an entity id. The format is shared
// with the feature-engineering job that populates the store.
func Key(id string) string {
	return "entity:" + id + ":features"
}

// IDFromKey extracts the entity id from a backing-store key, or "" if the
// key does not follow the entity key format.
func IDFromKey(key string) string {
	rest, ok := strings.CutPrefix(key, "entity:")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, ":features")
	if !ok {
		return ""
	}
	return id
}
