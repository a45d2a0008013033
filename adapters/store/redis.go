package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"driftgate/internal/schema"
)

const (
	defaultTimeout = 2 * time.Second
	defaultBackoff = 100 * time.Millisecond
	scanBatch      = 200
)

// RedisOptions carries injected connection and resilience parameters.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds every backend round trip; zero means defaultTimeout.
	Timeout time.Duration
	// RetryBackoff is the pause before the single retry of a failed call;
	// zero means defaultBackoff.
	RetryBackoff time.Duration
}

// RedisStore implements Store on a Redis backend. The backend provides its
// own per-key concurrency safety; no additional locking is layered on top.
type RedisStore struct {
	client  *redis.Client
	codec   codec
	timeout time.Duration
	backoff time.Duration
}

// NewRedisStore connects to Redis and returns a store bound to the schema.
func NewRedisStore(opts RedisOptions, s *schema.Schema) *RedisStore {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultBackoff
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisStore{
		client:  client,
		codec:   codec{schema: s},
		timeout: opts.Timeout,
		backoff: opts.RetryBackoff,
	}
}

// do runs op with a per-attempt deadline and retries once after a backoff.
// NotFound and codec errors are terminal: retrying cannot change them.
func (r *RedisStore) do(ctx context.Context, op func(context.Context) error) error {
	attempt := func() error {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		err := op(opCtx)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		return err
	}

	err := attempt()
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrCodec) || ctx.Err() != nil {
		return err
	}
	select {
	case <-time.After(r.backoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return attempt()
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, id string, features map[string]float64) error {
	data, err := r.codec.encode(features)
	if err != nil {
		return err
	}
	return r.do(ctx, func(ctx context.Context) error {
		if err := r.client.Set(ctx, Key(id), data, 0).Err(); err != nil {
			return fmt.Errorf("set %s: %w", id, err)
		}
		return nil
	})
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, id string) (map[string]float64, error) {
	var payload []byte
	err := r.do(ctx, func(ctx context.Context) error {
		data, err := r.client.Get(ctx, Key(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", id, err)
		}
		payload = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.codec.decode(payload)
}

// BatchSet implements Store. All entries are encoded up front, then written
// with a single MSET. MSET is atomic on the backend, so a failed batch
// writes nothing (written = 0) and an encode error aborts before any write.
func (r *RedisStore) BatchSet(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	pairs := make([]any, 0, len(entries)*2)
	for _, e := range entries {
		data, err := r.codec.encode(e.Features)
		if err != nil {
			return 0, fmt.Errorf("entity %s: %w", e.ID, err)
		}
		pairs = append(pairs, Key(e.ID), data)
	}
	err := r.do(ctx, func(ctx context.Context) error {
		if err := r.client.MSet(ctx, pairs...).Err(); err != nil {
			return fmt.Errorf("mset %d entries: %w", len(entries), err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// BatchGet implements Store via MGET. Keys the backend reports as absent
// are omitted from the result; a payload that fails to decode fails the
// call, since it signals store corruption rather than a missing key.
func (r *RedisStore) BatchGet(ctx context.Context, ids []string) (map[string]map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]map[string]float64{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}
	var raw []any
	err := r.do(ctx, func(ctx context.Context) error {
		vals, err := r.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("mget %d keys: %w", len(keys), err)
		}
		raw = vals
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64, len(ids))
	for i, val := range raw {
		if val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected payload type %T for %s", ErrCodec, val, ids[i])
		}
		features, err := r.codec.decode([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", ids[i], err)
		}
		out[ids[i]] = features
	}
	return out, nil
}

// EntityIDs implements Store with a cursor scan over the entity key pattern.
func (r *RedisStore) EntityIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.do(ctx, func(ctx context.Context) error {
		ids = ids[:0]
		iter := r.client.Scan(ctx, 0, Key("*"), scanBatch).Iterator()
		for iter.Next(ctx) {
			if id := IDFromKey(iter.Val()); id != "" {
				ids = append(ids, id)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan entities: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.client.Ping(ctx).Err()
	})
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
