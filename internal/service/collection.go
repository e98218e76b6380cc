package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pageza/dynamic-recipe/backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// CollectionCache mirrors each user's recipe collection for fast reads.
// The store stays the source of truth.
//
// Every Mutate and Invalidate bumps a per-user version, whether or not a
// collection is cached. A reload snapshots the version before reading the
// store and only caches its result if the version is still the same.
type CollectionCache interface {
	// Load returns the cached collection and whether one was present
	Load(ctx context.Context, userID string) ([]model.Recipe, bool, error)
	// Version returns the user's current write version
	Version(ctx context.Context, userID string) (uint64, error)
	// StoreIfUnchanged replaces the cached collection only if the user's
	// version still equals version. It reports whether the write happened.
	StoreIfUnchanged(ctx context.Context, userID string, recipes []model.Recipe, version uint64) (bool, error)
	// Mutate applies fn to the cached collection. It is a no-op when nothing is cached.
	Mutate(ctx context.Context, userID string, fn func([]model.Recipe) []model.Recipe) error
	// Invalidate drops the cached collection
	Invalidate(ctx context.Context, userID string) error
}

// Collection mutators applied after successful store writes

// appendRecipe replaces r in place if a reload already picked it up
func appendRecipe(r model.Recipe) func([]model.Recipe) []model.Recipe {
	return func(list []model.Recipe) []model.Recipe {
		for i := range list {
			if list[i].ID == r.ID {
				list[i] = r
				return list
			}
		}
		return append(list, r)
	}
}

func replaceRecipe(r model.Recipe) func([]model.Recipe) []model.Recipe {
	return func(list []model.Recipe) []model.Recipe {
		for i := range list {
			if list[i].ID == r.ID {
				list[i] = r
			}
		}
		return list
	}
}

func removeRecipe(id string) func([]model.Recipe) []model.Recipe {
	return func(list []model.Recipe) []model.Recipe {
		out := list[:0]
		for _, r := range list {
			if r.ID != id {
				out = append(out, r)
			}
		}
		return out
	}
}

// favoritesFirst is a stable sort: favorites move ahead of non-favorites and
// relative order within each group is kept.
func favoritesFirst(list []model.Recipe) []model.Recipe {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].IsFavorite && !list[j].IsFavorite
	})
	return list
}

// MemoryCollectionCache keeps collections in process memory
type MemoryCollectionCache struct {
	mu       sync.Mutex
	items    map[string][]model.Recipe
	versions map[string]uint64
}

func NewMemoryCollectionCache() *MemoryCollectionCache {
	return &MemoryCollectionCache{
		items:    make(map[string][]model.Recipe),
		versions: make(map[string]uint64),
	}
}

func (c *MemoryCollectionCache) Load(_ context.Context, userID string) ([]model.Recipe, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.items[userID]
	if !ok {
		return nil, false, nil
	}
	return cloneRecipes(list), true, nil
}

func (c *MemoryCollectionCache) Version(_ context.Context, userID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[userID], nil
}

func (c *MemoryCollectionCache) StoreIfUnchanged(_ context.Context, userID string, recipes []model.Recipe, version uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[userID] != version {
		return false, nil
	}
	c.items[userID] = cloneRecipes(recipes)
	return true, nil
}

func (c *MemoryCollectionCache) Mutate(_ context.Context, userID string, fn func([]model.Recipe) []model.Recipe) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	list, ok := c.items[userID]
	if !ok {
		return nil
	}
	c.items[userID] = fn(list)
	return nil
}

func (c *MemoryCollectionCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	delete(c.items, userID)
	return nil
}

func cloneRecipes(list []model.Recipe) []model.Recipe {
	out := make([]model.Recipe, len(list))
	copy(out, list)
	return out
}

const maxMutateAttempts = 5

// RedisCollectionCache stores each collection as one JSON value with a TTL.
// The write version lives in a sibling counter key.
type RedisCollectionCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCollectionCache(client *redis.Client, ttl time.Duration) *RedisCollectionCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisCollectionCache{redis: client, ttl: ttl}
}

func collectionKey(userID string) string {
	return fmt.Sprintf("recipes:collection:%s", userID)
}

func collectionVersionKey(userID string) string {
	return fmt.Sprintf("recipes:collection:%s:version", userID)
}

// versionTTL outlives the collection so a counter cannot expire and restart
// underneath a reload that is still reading the store
func (c *RedisCollectionCache) versionTTL() time.Duration {
	return 2 * c.ttl
}

func (c *RedisCollectionCache) Load(ctx context.Context, userID string) ([]model.Recipe, bool, error) {
	data, err := c.redis.Get(ctx, collectionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load collection: %w", err)
	}
	var recipes []model.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal collection: %w", err)
	}
	return recipes, true, nil
}

// Version reads the counter and extends its TTL
func (c *RedisCollectionCache) Version(ctx context.Context, userID string) (uint64, error) {
	v, err := c.redis.GetEx(ctx, collectionVersionKey(userID), c.versionTTL()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection version: %w", err)
	}
	return v, nil
}

// StoreIfUnchanged watches the version key so a Mutate or Invalidate landing
// between the check and the write aborts the transaction
func (c *RedisCollectionCache) StoreIfUnchanged(ctx context.Context, userID string, recipes []model.Recipe, version uint64) (bool, error) {
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	data, err := json.Marshal(recipes)
	if err != nil {
		return false, fmt.Errorf("failed to marshal collection: %w", err)
	}

	versionKey := collectionVersionKey(userID)
	stored := false
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Uint64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, collectionKey(userID), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}

	err = c.redis.Watch(ctx, txf, versionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to store collection: %w", err)
	}
	return stored, nil
}

// Mutate uses WATCH/MULTI so concurrent mutations for the same user are not lost
func (c *RedisCollectionCache) Mutate(ctx context.Context, userID string, fn func([]model.Recipe) []model.Recipe) error {
	key := collectionKey(userID)
	versionKey := collectionVersionKey(userID)
	txf := func(tx *redis.Tx) error {
		var updated []byte
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var recipes []model.Recipe
			if err := json.Unmarshal(data, &recipes); err != nil {
				return err
			}
			if updated, err = json.Marshal(fn(recipes)); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, versionKey)
			pipe.Expire(ctx, versionKey, c.versionTTL())
			if updated != nil {
				pipe.Set(ctx, key, updated, c.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxMutateAttempts; i++ {
		err := c.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to mutate collection: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to mutate collection: %w", redis.TxFailedErr)
}

func (c *RedisCollectionCache) Invalidate(ctx context.Context, userID string) error {
	versionKey := collectionVersionKey(userID)
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, collectionKey(userID))
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, c.versionTTL())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate collection: %w", err)
	}
	return nil
}
