package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pageza/dynamic-recipe/backend/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrRedisNotConfigured is returned when neither REDIS_URL nor REDIS_HOST is set
var ErrRedisNotConfigured = errors.New("redis is not configured")

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	var opts *redis.Options

	// Use Redis URL if provided (for production deployments)
	switch {
	case cfg.RedisURL != "":
		parsedOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts = parsedOpts
	case cfg.RedisAddr() != "":
		opts = &redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	default:
		return nil, ErrRedisNotConfigured
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("successfully connected to Redis", zap.String("addr", opts.Addr))
	return client, nil
}
