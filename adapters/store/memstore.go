package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"driftgate/internal/schema"
)

// MemStore is an in-memory Store for tests and standalone runs. It stores
// encoded payloads so the codec path is exercised exactly as with Redis.
// Implements Store.
type MemStore struct {
	mu    sync.Mutex
	codec codec
	data  map[string][]byte
}

// NewMemStore returns an empty in-memory store bound to the schema.
func NewMemStore(s *schema.Schema) *MemStore {
	return &MemStore{
		codec: codec{schema: s},
		data:  make(map[string][]byte),
	}
}

// Set implements Store.
func (m *MemStore) Set(ctx context.Context, id string, features map[string]float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := m.codec.encode(features)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

// Get implements Store.
func (m *MemStore) Get(ctx context.Context, id string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.codec.decode(data)
}

// BatchSet implements Store. Entries are written in order; the first
// failure aborts the batch and the returned count reports how many entries
// were committed before it.
func (m *MemStore) BatchSet(ctx context.Context, entries []Entry) (int, error) {
	for i, e := range entries {
		if err := m.Set(ctx, e.ID, e.Features); err != nil {
			return i, fmt.Errorf("entity %s: %w", e.ID, err)
		}
	}
	return len(entries), nil
}

// BatchGet implements Store. Absent ids are omitted from the result.
func (m *MemStore) BatchGet(ctx context.Context, ids []string) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64, len(ids))
	for _, id := range ids {
		features, err := m.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = features
	}
	return out, nil
}

// EntityIDs implements Store. Ids are returned sorted for stable output.
func (m *MemStore) EntityIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids, nil
}

// Ping implements Store.
func (m *MemStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close implements Store.
func (m *MemStore) Close() error { return nil }
