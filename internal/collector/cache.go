package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ValuationSentinel/internal/metrics"
	"ValuationSentinel/internal/model"
)

// ErrCacheMiss is returned by a Store when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-oriented key-value cache with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// CachingFetcher decorates a Fetcher with a time-boxed cache. Cache errors
// are logged and bypassed; they never fail a fetch.
type CachingFetcher struct {
	inner     Fetcher
	store     Store
	ttl       time.Duration
	namespace string
	Metrics   *metrics.Metrics
}

// NewCachingFetcher wraps inner. If ttl is 0 it defaults to 30 minutes.
// If namespace is empty, it uses "market".
func NewCachingFetcher(inner Fetcher, store Store, ttl time.Duration, namespace string) *CachingFetcher {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if namespace == "" {
		namespace = "market"
	}
	return &CachingFetcher{inner: inner, store: store, ttl: ttl, namespace: namespace}
}

func (c *CachingFetcher) Name() string { return c.inner.Name() + "+cache" }

func (c *CachingFetcher) FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	key := fmt.Sprintf("%s:history:%s:%d", c.namespace, safe(ticker), days)
	var bars []model.PriceBar
	if c.lookup(ctx, key, &bars) {
		return bars, nil
	}
	bars, err := c.inner.FetchPriceHistory(ctx, ticker, days)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, bars)
	return bars, nil
}

func (c *CachingFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalSnapshot, error) {
	key := fmt.Sprintf("%s:fundamentals:%s", c.namespace, safe(ticker))
	var snap model.FundamentalSnapshot
	if c.lookup(ctx, key, &snap) {
		return &snap, nil
	}
	fetched, err := c.inner.FetchFundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, fetched)
	return fetched, nil
}

// Invalidate drops every entry under the fetcher's namespace so the next
// fetch goes upstream.
func (c *CachingFetcher) Invalidate(ctx context.Context) error {
	if err := c.store.DeletePrefix(ctx, c.namespace+":"); err != nil {
		return fmt.Errorf("invalidate cache %s: %w", c.namespace, err)
	}
	log.Printf("[INFO] cache namespace %q invalidated", c.namespace)
	return nil
}

func (c *CachingFetcher) lookup(ctx context.Context, key string, out any) bool {
	b, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		c.Metrics.CacheResult("miss")
		return false
	case err != nil:
		log.Printf("[WARN] cache get %s: %v", key, err)
		c.Metrics.CacheResult("error")
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		log.Printf("[WARN] corrupted cache entry %s: %v", key, err)
		c.Metrics.CacheResult("error")
		return false
	}
	c.Metrics.CacheResult("hit")
	return true
}

func (c *CachingFetcher) save(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		log.Printf("[WARN] cache set %s: %v", key, err)
	}
}

// safe escapes characters that are problematic for cache keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !s.now().Before(it.expiresAt) {
		delete(s.items, key)
		return nil, ErrCacheMiss
	}
	return it.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
		}
	}
	return nil
}

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// DeletePrefix walks the keyspace with SCAN and deletes matches in batches.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Printf("[INFO] redis cache connected: %s", addr)
	return rdb, nil
}
