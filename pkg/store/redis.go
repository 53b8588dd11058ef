package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mattcoatsworth/cursormcp-datagen/pkg/dataset"
)

// Redis key layout. Examples live in one hash keyed by example ID (HSETNX is
// the insert-if-absent primitive); per-category ID sets support counting.
const (
	DefaultKeyPrefix = "datagen"

	keyExamplesSuffix = ":examples"
	keyCategoryInfix  = ":category:"
)

// RedisStore persists examples in Redis.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a store backed by the given Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: DefaultKeyPrefix,
	}
}

// WithKeyPrefix returns a copy of the store using a different key namespace.
// Useful for isolating test runs against a shared Redis.
func (s *RedisStore) WithKeyPrefix(prefix string) *RedisStore {
	return &RedisStore{redis: s.redis, prefix: prefix}
}

func (s *RedisStore) examplesKey() string {
	return s.prefix + keyExamplesSuffix
}

func (s *RedisStore) categoryKey(category string) string {
	return s.prefix + keyCategoryInfix + category
}

// UpsertMany writes all examples in one pipeline of HSETNX commands, then
// registers the newly inserted IDs in their category sets. Re-submitting an
// already stored ID is a no-op, not an error.
func (s *RedisStore) UpsertMany(ctx context.Context, examples []dataset.Example) ([]bool, error) {
	if len(examples) == 0 {
		return nil, nil
	}

	payloads := make([][]byte, len(examples))
	for i, example := range examples {
		if example.ID == "" {
			return nil, fmt.Errorf("%w: example %d has empty id", ErrMalformedItem, i)
		}
		data, err := json.Marshal(example)
		if err != nil {
			return nil, &WriteError{Retryable: false, Message: "marshal example", Err: err}
		}
		payloads[i] = data
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.BoolCmd, len(examples))
	for i, example := range examples {
		cmds[i] = pipe.HSetNX(ctx, s.examplesKey(), example.ID, payloads[i])
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, &WriteError{Retryable: true, Message: "redis pipeline exec", Err: err}
	}

	inserted := make([]bool, len(examples))
	catPipe := s.redis.Pipeline()
	for i, cmd := range cmds {
		inserted[i] = cmd.Val()
		if inserted[i] {
			catPipe.SAdd(ctx, s.categoryKey(examples[i].Category), examples[i].ID)
		}
	}
	if _, err := catPipe.Exec(ctx); err != nil {
		return nil, &WriteError{Retryable: true, Message: "redis category index", Err: err}
	}

	return inserted, nil
}

// UpsertOne inserts one example if its ID is absent.
func (s *RedisStore) UpsertOne(ctx context.Context, example dataset.Example) (bool, error) {
	if example.ID == "" {
		return false, fmt.Errorf("%w: empty id", ErrMalformedItem)
	}

	data, err := json.Marshal(example)
	if err != nil {
		return false, &WriteError{Retryable: false, Message: "marshal example", Err: err}
	}

	inserted, err := s.redis.HSetNX(ctx, s.examplesKey(), example.ID, data).Result()
	if err != nil {
		return false, &WriteError{Retryable: true, Message: "redis hsetnx", Err: err}
	}
	if inserted {
		if err := s.redis.SAdd(ctx, s.categoryKey(example.Category), example.ID).Err(); err != nil {
			return true, &WriteError{Retryable: true, Message: "redis category index", Err: err}
		}
	}

	return inserted, nil
}

// CountAll returns the total number of stored examples.
func (s *RedisStore) CountAll(ctx context.Context) (int64, error) {
	count, err := s.redis.HLen(ctx, s.examplesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hlen: %w", err)
	}
	return count, nil
}

// CountCategory returns the number of stored examples for one category.
func (s *RedisStore) CountCategory(ctx context.Context, category string) (int64, error) {
	count, err := s.redis.SCard(ctx, s.categoryKey(category)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard: %w", err)
	}
	return count, nil
}

// DeleteCategory removes a category's examples and its index set. Intended
// for tests and for resetting a category before a regeneration run.
func (s *RedisStore) DeleteCategory(ctx context.Context, category string) (int64, error) {
	ids, err := s.redis.SMembers(ctx, s.categoryKey(category)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	pipe.HDel(ctx, s.examplesKey(), ids...)
	pipe.Del(ctx, s.categoryKey(category))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis delete category: %w", err)
	}
	return int64(len(ids)), nil
}

// All returns every stored example. Intended for small datasets, tooling, and
// tests; production reads go through the separate query surface.
func (s *RedisStore) All(ctx context.Context) ([]dataset.Example, error) {
	fields, err := s.redis.HGetAll(ctx, s.examplesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	examples := make([]dataset.Example, 0, len(fields))
	for id, data := range fields {
		var example dataset.Example
		if err := json.Unmarshal([]byte(data), &example); err != nil {
			return nil, fmt.Errorf("unmarshal example %s: %w", id, err)
		}
		examples = append(examples, example)
	}
	return examples, nil
}
