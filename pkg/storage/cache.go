package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheConfig holds Redis cache configuration.
type CacheConfig struct {
	URL          string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	HierarchyTTL time.Duration
	RightsTTL    time.Duration
}

// DefaultCacheConfig returns cache defaults. Rights entries are kept
// short-lived so revocations propagate quickly.
func DefaultCacheConfig(url string) CacheConfig {
	return CacheConfig{
		URL:          url,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		HierarchyTTL: 5 * time.Minute,
		RightsTTL:    30 * time.Second,
	}
}

// Cache is a Redis-backed read cache for topic hierarchies and effective
// permission triples. All methods treat a miss and a disabled cache the
// same way: the caller falls through to the database.
type Cache struct {
	client *redis.Client
	config CacheConfig
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg CacheConfig) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, config: cfg}, nil
}

func hierarchyKey(libraryID int64) string {
	return fmt.Sprintf("hierarchy:%d", libraryID)
}

func rightsKey(userID, libraryID int64) string {
	return fmt.Sprintf("rights:%d:%d", userID, libraryID)
}

// GetHierarchy retrieves a cached topic hierarchy for a library. A nil
// result with nil error is a cache miss.
func (c *Cache) GetHierarchy(ctx context.Context, libraryID int64, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, hierarchyKey(libraryID)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal([]byte(data), out); err != nil {
		// Corrupt entry; drop it and treat as a miss.
		c.client.Del(ctx, hierarchyKey(libraryID))
		return false, nil
	}
	return true, nil
}

// SetHierarchy stores a topic hierarchy for a library.
func (c *Cache) SetHierarchy(ctx context.Context, libraryID int64, hierarchy interface{}) error {
	data, err := json.Marshal(hierarchy)
	if err != nil {
		return fmt.Errorf("failed to marshal hierarchy: %w", err)
	}
	return c.client.Set(ctx, hierarchyKey(libraryID), data, c.config.HierarchyTTL).Err()
}

// InvalidateHierarchy removes a library's cached hierarchy. Called after
// every topic mutation in that library.
func (c *Cache) InvalidateHierarchy(ctx context.Context, libraryID int64) error {
	return c.client.Del(ctx, hierarchyKey(libraryID)).Err()
}

// CachedRights is the effective rights triple stored per (user, library).
type CachedRights struct {
	CanRead   bool `json:"can_read"`
	CanWrite  bool `json:"can_write"`
	CanDelete bool `json:"can_delete"`
}

// GetRights retrieves cached effective rights for a (user, library) pair.
func (c *Cache) GetRights(ctx context.Context, userID, libraryID int64) (*CachedRights, error) {
	data, err := c.client.Get(ctx, rightsKey(userID, libraryID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var rights CachedRights
	if err := json.Unmarshal([]byte(data), &rights); err != nil {
		c.client.Del(ctx, rightsKey(userID, libraryID))
		return nil, nil
	}
	return &rights, nil
}

// SetRights stores effective rights for a (user, library) pair.
func (c *Cache) SetRights(ctx context.Context, userID, libraryID int64, rights CachedRights) error {
	data, err := json.Marshal(rights)
	if err != nil {
		return fmt.Errorf("failed to marshal rights: %w", err)
	}
	return c.client.Set(ctx, rightsKey(userID, libraryID), data, c.config.RightsTTL).Err()
}

// InvalidateRights removes the cached rights for one user on a library.
func (c *Cache) InvalidateRights(ctx context.Context, userID, libraryID int64) error {
	return c.client.Del(ctx, rightsKey(userID, libraryID)).Err()
}

// InvalidateLibrary removes every cached rights entry for a library,
// for use when a library is deleted or its ACL is bulk-modified.
func (c *Cache) InvalidateLibrary(ctx context.Context, libraryID int64) error {
	pattern := fmt.Sprintf("rights:*:%d", libraryID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan failed for pattern %s: %w", pattern, err)
	}
	return c.client.Del(ctx, hierarchyKey(libraryID)).Err()
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
