package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides the redis operations used for per-session view state
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Dashboard view state: lists, pagination, last error
	ViewCacheConfig = CacheConfig{
		TTL:    24 * time.Hour,
		Prefix: "view:",
	}

	// Per-view request sequence counters
	SequenceCacheConfig = CacheConfig{
		TTL:    24 * time.Hour,
		Prefix: "seq:",
	}

	// In-flight markers, e.g. a pending apply
	GuardCacheConfig = CacheConfig{
		TTL:    30 * time.Second,
		Prefix: "guard:",
	}
)

// maxTxAttempts bounds optimistic transaction retries on WATCH conflicts
const maxTxAttempts = 5

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
	// ErrStale means a newer sequence was dispatched for the same key.
	ErrStale = errors.New("stale write discarded")
)

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// SetNX stores a marker only when the key is absent. It reports whether the
// marker was stored.
func (c *CacheHelper) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}
	ok, err := c.client.SetNX(ctx, c.GetCacheKey(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx error: %w", err)
	}
	return ok, nil
}

// Pop retrieves the value at key and removes it in one step
func (c *CacheHelper) Pop(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.GetDel(ctx, c.GetCacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache pop error: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// AddMember adds member to the set at key and refreshes its TTL
func (c *CacheHelper) AddMember(ctx context.Context, key, member string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	cacheKey := c.GetCacheKey(key)
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, cacheKey, member)
	pipe.Expire(ctx, cacheKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache sadd error: %w", err)
	}
	return nil
}

// Members returns the members of the set at key
func (c *CacheHelper) Members(ctx context.Context, key string) (map[string]bool, error) {
	if c.client == nil {
		return nil, ErrCacheNotAvailable
	}

	list, err := c.client.SMembers(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache smembers error: %w", err)
	}
	out := make(map[string]bool, len(list))
	for _, m := range list {
		out[m] = true
	}
	return out, nil
}

// Delete removes data from cache using pipeline for multiple keys
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}
	return c.client.Del(ctx, cacheKeys...).Err()
}

// Exists checks if a key exists in cache
func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	count, err := c.client.Exists(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return count > 0, nil
}

// ExistsEach reports for every key whether it exists, using one pipeline
func (c *CacheHelper) ExistsEach(ctx context.Context, keys ...string) (map[string]bool, error) {
	if c.client == nil {
		return nil, ErrCacheNotAvailable
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Exists(ctx, c.GetCacheKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache exists error: %w", err)
	}

	out := make(map[string]bool, len(keys))
	for i, key := range keys {
		out[key] = cmds[i].Val() > 0
	}
	return out, nil
}

// NextSequence increments and returns the counter stored at key.
func (c *CacheHelper) NextSequence(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.client == nil {
		return 0, ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, cacheKey)
	pipe.Expire(ctx, cacheKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("cache sequence error: %w", err)
	}
	return incr.Val(), nil
}

// Sequence returns the current counter at key, zero when unset.
func (c *CacheHelper) Sequence(ctx context.Context, key string) (int64, error) {
	if c.client == nil {
		return 0, ErrCacheNotAvailable
	}
	n, err := c.client.Get(ctx, c.GetCacheKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache sequence error: %w", err)
	}
	return n, nil
}

// SetIfLatest stores value at key only while the counter held by seqHelper at
// seqKey still equals seq. Returns ErrStale otherwise.
func (c *CacheHelper) SetIfLatest(ctx context.Context, seqHelper *CacheHelper, seqKey string, seq int64, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	fullSeqKey := seqHelper.GetCacheKey(seqKey)
	fullKey := c.GetCacheKey(key)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fullSeqKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != seq {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, data, ttl)
			return nil
		})
		return err
	}
	return c.watch(ctx, txf, fullSeqKey, fullKey)
}

// Mutate loads the JSON value at key into dest, lets fn change it and writes
// it back inside a WATCH transaction. fn reports whether anything changed;
// nothing is written when it returns false. ErrCacheNotFound is returned when
// the key is absent.
func (c *CacheHelper) Mutate(ctx context.Context, key string, ttl time.Duration, dest interface{}, fn func() (bool, error)) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	fullKey := c.GetCacheKey(key)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("cache unmarshal error: %w", err)
		}

		changed, err := fn()
		if err != nil || !changed {
			return err
		}
		data, err := json.Marshal(dest)
		if err != nil {
			return fmt.Errorf("cache marshal error: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, data, ttl)
			return nil
		})
		return err
	}
	return c.watch(ctx, txf, fullKey)
}

// InvalidatePattern removes all keys matching a pattern using SCAN instead of KEYS
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	fullPattern := c.GetCacheKey(pattern)
	var cursor uint64
	var keys []string
	for {
		var batch []string
		var err error
		batch, cursor, err = c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		pipe.Del(ctx, keys[i:end]...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache pipeline delete error: %w", err)
	}
	return nil
}

func (c *CacheHelper) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxAttempts; i++ {
		err := c.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("cache transaction: %w", redis.TxFailedErr)
}

// CacheManager manages the helpers used by the portal
type CacheManager struct {
	client   *redis.Client
	View     *CacheHelper
	Sequence *CacheHelper
	Guard    *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:   client,
		View:     NewCacheHelper(client, ViewCacheConfig.Prefix),
		Sequence: NewCacheHelper(client, SequenceCacheConfig.Prefix),
		Guard:    NewCacheHelper(client, GuardCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
