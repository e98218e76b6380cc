package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InFlightConfig defines configuration for the in-flight guard
type InFlightConfig struct {
	// TTL bounds how long a flag can outlive a request that never released it
	TTL time.Duration
	// Key prefix for flag keys
	KeyPrefix string
}

// InFlightStore holds per-key flags with a release token
type InFlightStore interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// InFlightGuard rejects a request while the same user already has one outstanding
// on the guarded route. It does not queue and does not count.
type InFlightGuard struct {
	store  InFlightStore
	config InFlightConfig
	logger *zap.Logger
}

// NewInFlightGuard creates a new in-flight guard instance
func NewInFlightGuard(store InFlightStore, config InFlightConfig, logger *zap.Logger) *InFlightGuard {
	if config.TTL <= 0 {
		config.TTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InFlightGuard{store: store, config: config, logger: logger}
}

// NewGenerationGuard guards recipe generation, one request per user at a time
func NewGenerationGuard(store InFlightStore, ttl time.Duration, logger *zap.Logger) *InFlightGuard {
	return NewInFlightGuard(store, InFlightConfig{TTL: ttl, KeyPrefix: "inflight:recipe_generation"}, logger)
}

// Middleware returns a Gin middleware that enforces the guard
func (g *InFlightGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		key := fmt.Sprintf("%s:%s", g.config.KeyPrefix, userID)
		token := uuid.NewString()

		acquired, err := g.store.Acquire(c.Request.Context(), key, token, g.config.TTL)
		if err != nil {
			// Log error but don't fail the request
			g.logger.Warn("in-flight guard unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			c.JSON(http.StatusConflict, gin.H{"error": "a recipe is already being generated, please wait for it to finish"})
			c.Abort()
			return
		}

		defer func() {
			// release even if the client went away
			if err := g.store.Release(context.WithoutCancel(c.Request.Context()), key, token); err != nil {
				g.logger.Warn("failed to release in-flight flag", zap.String("key", key), zap.Error(err))
			}
		}()
		c.Next()
	}
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInFlightStore keeps flags in Redis so the guard holds across instances
type RedisInFlightStore struct {
	redis *redis.Client
}

func NewRedisInFlightStore(client *redis.Client) *RedisInFlightStore {
	return &RedisInFlightStore{redis: client}
}

func (s *RedisInFlightStore) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, key, token, ttl).Result()
}

func (s *RedisInFlightStore) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, s.redis, []string{key}, token).Err()
}

type inFlightEntry struct {
	token   string
	expires time.Time
}

// MemoryInFlightStore keeps flags in process memory
type MemoryInFlightStore struct {
	mu      sync.Mutex
	entries map[string]inFlightEntry
	now     func() time.Time
}

func NewMemoryInFlightStore() *MemoryInFlightStore {
	return &MemoryInFlightStore{entries: make(map[string]inFlightEntry), now: time.Now}
}

func (s *MemoryInFlightStore) Acquire(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	s.entries[key] = inFlightEntry{token: token, expires: now.Add(ttl)}
	return true, nil
}

func (s *MemoryInFlightStore) Release(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.token == token {
		delete(s.entries, key)
	}
	return nil
}
