package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Default tunables for the in-process tier, per the cache policy described
// for Transactional Data Services: a five-minute local TTL, roughly a
// hundred hot entries, fronting a thirty-minute cross-process TTL.
const (
	DefaultLocalCapacity = 100
	DefaultLocalTTL      = 5 * time.Minute
	DefaultRemoteTTL     = 30 * time.Minute
)

// Cache is the two-tier read-through cache: a bounded in-process LRU in
// front of a shared Redis instance. [singleflight.Group] collapses
// duplicate concurrent misses for the same key into a single remote
// round-trip and, on a remote miss, a single call to the caller's loader.
//
// Safe for concurrent use.
type Cache struct {
	local     *localLRU
	remote    *redis.Client
	remoteTTL time.Duration
	group     singleflight.Group
}

// New builds a [Cache] backed by a Redis client at addr. localCapacity and
// localTTL tune the in-process tier; remoteTTL tunes the shared tier.
// Passing zero for any of them falls back to the defaults above.
func New(addr string, localCapacity int, localTTL, remoteTTL time.Duration) *Cache {
	if localCapacity <= 0 {
		localCapacity = DefaultLocalCapacity
	}
	if localTTL <= 0 {
		localTTL = DefaultLocalTTL
	}
	if remoteTTL <= 0 {
		remoteTTL = DefaultRemoteTTL
	}
	return &Cache{
		local:     newLocalLRU(localCapacity, localTTL),
		remote:    redis.NewClient(&redis.Options{Addr: addr}),
		remoteTTL: remoteTTL,
	}
}

// Close releases the underlying Redis client's connections.
func (c *Cache) Close() error {
	return c.remote.Close()
}

// Ping verifies connectivity to the remote tier, for use in a readiness
// check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.remote.Ping(ctx).Err()
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result on a miss. dest must be a pointer; the cached representation is
// JSON, matching the struct-shaped values (customer snapshots, LLM
// responses) this cache holds.
func (c *Cache) GetOrLoad(ctx context.Context, key string, dest any, load func(ctx context.Context) (any, error)) error {
	if v, ok := c.local.get(key); ok {
		return assign(dest, v)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		raw, err := c.remote.Get(ctx, key).Bytes()
		if err == nil {
			var v any
			if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
				c.local.set(key, v)
				return v, nil
			}
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if encoded, encErr := json.Marshal(v); encErr == nil {
			_ = c.remote.Set(ctx, key, encoded, c.remoteTTL).Err()
		}
		c.local.set(key, v)
		return v, nil
	})
	if err != nil {
		return err
	}
	return assign(dest, result)
}

// Set writes value to both tiers under key.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	c.local.set(key, value)
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.remote.Set(ctx, key, encoded, c.remoteTTL).Err()
}

// SetWithTTL writes value to the remote tier only, under an explicit TTL
// distinct from the cache's default — used for the OTP challenge backing
// DELETE_CUSTOMER_DATA, whose ten-minute lifetime is a business rule, not
// a cache-freshness policy.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.remote.Set(ctx, key, encoded, ttl).Err()
}

// Get reads value from the remote tier only, bypassing the local LRU —
// used for the OTP challenge, which must never be served stale from an
// in-process cache after [Cache.Delete].
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.remote.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

// Delete removes key from the remote tier, and key together with every
// local-tier key that starts with it from the local tier.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.local.deletePrefix(key)
	return c.remote.Del(ctx, key).Err()
}

// InvalidatePrefix drops every key starting with prefix from the local
// tier and every key from a matching Redis SCAN from the remote tier. Used
// after any write to keep reads consistent: "customer:*" after a customer
// mutation, a specific "customer-balance:{id}" after a ledger write.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.local.deletePrefix(prefix)

	iter := c.remote.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.remote.Del(ctx, keys...).Err()
}

func assign(dest, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, dest)
}

// CustomerKey builds the cache key for a resolved customer snapshot by
// spoken query string.
func CustomerKey(query string) string {
	return "customer:" + strings.ToLower(strings.TrimSpace(query))
}

// CustomerBalanceKey builds the cache key for a single customer's balance,
// invalidated on every ledger write for that customer.
func CustomerBalanceKey(customerID string) string {
	return "customer-balance:" + customerID
}

// LLMResponseKey builds the cache key for a memoized LLM response, scoped
// by intent and a caller-computed scope hash (conversation-context hash
// when the policy scope is "conversation", a constant when "global").
func LLMResponseKey(intent, scopeHash string) string {
	return "llm-response:" + intent + ":" + scopeHash
}
