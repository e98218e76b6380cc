package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pageza/dynamic-recipe/backend/config"
	"github.com/pageza/dynamic-recipe/backend/internal/api"
	"github.com/pageza/dynamic-recipe/backend/internal/database"
	"github.com/pageza/dynamic-recipe/backend/internal/logger"
	"github.com/pageza/dynamic-recipe/backend/internal/middleware"
	"github.com/pageza/dynamic-recipe/backend/internal/router"
	"github.com/pageza/dynamic-recipe/backend/internal/server"
	"github.com/pageza/dynamic-recipe/backend/internal/service"
)

func main() {
	// .env is optional; real deployments use the environment and secrets
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server exited with error", zap.Error(err))
	}
	zlog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.New(cfg, zlog)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, zlog); err != nil {
		return err
	}

	// Redis backs the collection cache and the in-flight guard when available
	var (
		cache         service.CollectionCache
		inFlightStore middleware.InFlightStore
	)
	redisClient, err := database.NewRedisClient(cfg, zlog)
	switch {
	case err == nil:
		defer redisClient.Close()
		cache = service.NewRedisCollectionCache(redisClient, cfg.CollectionCacheTTL)
		inFlightStore = middleware.NewRedisInFlightStore(redisClient)
	case errors.Is(err, database.ErrRedisNotConfigured):
		zlog.Info("redis not configured, using in-process cache")
	default:
		zlog.Warn("redis unavailable, using in-process cache", zap.Error(err))
	}
	if cache == nil {
		cache = service.NewMemoryCollectionCache()
		inFlightStore = middleware.NewMemoryInFlightStore()
	}

	// Initialize services
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTExpiration)
	recipeService := service.NewRecipeService(db, cache, zlog)
	llmService, err := service.NewLLMService(service.LLMConfig{
		APIKey:  cfg.LLMAPIKey,
		APIURL:  cfg.LLMAPIURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}, zlog)
	if err != nil {
		return err
	}

	var exportService service.IExportService
	s3Config, err := config.NewS3Config(ctx, cfg)
	switch {
	case err == nil:
		exportService = service.NewExportService(recipeService, s3Config, cfg.ExportURLTTL, zlog)
		zlog.Info("collection export enabled", zap.String("bucket", s3Config.BucketName))
	case errors.Is(err, config.ErrStorageDisabled):
		zlog.Info("collection export disabled, no bucket configured")
	default:
		return err
	}

	guard := middleware.NewGenerationGuard(inFlightStore, cfg.GenerationLockTTL, zlog)

	engine := router.SetupRouter(router.Dependencies{
		AuthHandler:    api.NewAuthHandler(authService, zlog),
		RecipeHandler:  api.NewRecipeHandler(recipeService, exportService, zlog),
		LLMHandler:     api.NewLLMHandler(llmService, recipeService, guard, cfg.LLMTimeout, zlog),
		TokenValidator: authService,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         zlog,
	})

	zlog.Info("starting server",
		zap.String("environment", string(cfg.Environment)),
		zap.String("model", cfg.LLMModel),
	)
	return server.New(cfg.ServerHost, cfg.ServerPort, engine, zlog).Run(ctx)
}
