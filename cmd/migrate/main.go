package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pageza/dynamic-recipe/backend/config"
	"github.com/pageza/dynamic-recipe/backend/internal/database"
	"github.com/pageza/dynamic-recipe/backend/internal/logger"
)

func main() {
	// Parse command line flags
	dir := flag.String("dir", "", "Directory holding the SQL migrations (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dir != "" {
		cfg.MigrationsDir = *dir
	}

	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Development: true})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.New(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db, cfg.MigrationsDir, zlog); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
	zlog.Info("all migrations applied", zap.String("dir", cfg.MigrationsDir))
}
