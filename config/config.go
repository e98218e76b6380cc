package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment `mapstructure:"-"`

	// Server configuration
	ServerPort string `mapstructure:"server_port"`
	ServerHost string `mapstructure:"server_host"`

	// Database configuration
	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_ssl_mode"`
	SQLitePath string `mapstructure:"sqlite_path"`

	MigrationsDir string `mapstructure:"migrations_dir"`

	// Redis configuration
	RedisURL      string `mapstructure:"redis_url"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// JWT configuration
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`

	// Recipe generation backend
	LLMAPIKey  string        `mapstructure:"llm_api_key"`
	LLMAPIURL  string        `mapstructure:"llm_api_url"`
	LLMModel   string        `mapstructure:"llm_model"`
	LLMTimeout time.Duration `mapstructure:"llm_timeout"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	CollectionCacheTTL time.Duration `mapstructure:"collection_cache_ttl"`
	GenerationLockTTL  time.Duration `mapstructure:"generation_lock_ttl"`

	// Collection export
	S3BucketName string        `mapstructure:"s3_bucket_name"`
	AWSRegion    string        `mapstructure:"aws_region"`
	ExportURLTTL time.Duration `mapstructure:"export_url_ttl"`
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if err := v.BindEnv("llm_api_key", "LLM_API_KEY", "GROQ_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind llm_api_key: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Environment = env
	cfg.CORSAllowedOrigins = splitList(v.GetString("cors_allowed_origins"))

	loadSecrets(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "5001")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "dynamic_recipe")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("sqlite_path", "dynamic_recipe.db")
	v.SetDefault("migrations_dir", "migrations")

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiration", "24h")

	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_api_url", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("llm_model", "llama-3.1-70b-versatile")
	v.SetDefault("llm_timeout", "60s")

	v.SetDefault("cors_allowed_origins", "http://localhost:3000")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("collection_cache_ttl", "30m")
	v.SetDefault("generation_lock_ttl", "2m")

	v.SetDefault("s3_bucket_name", "")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("export_url_ttl", "15m")
}

// loadSecrets fills credentials that were not provided through the environment
// from Docker secrets.
func loadSecrets(cfg *Config) {
	if cfg.Environment == CI {
		// CI uses environment variables only
		return
	}
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = readSecret(name)
		}
	}
	fill(&cfg.DBPassword, "db_password")
	fill(&cfg.RedisPassword, "redis_password")
	fill(&cfg.JWTSecret, "jwt_secret")
	fill(&cfg.LLMAPIKey, "llm_api_key")
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RedisAddr returns host:port for the configured Redis server, or "" when
// neither REDIS_URL nor REDIS_HOST is set.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// PostgresDSN builds the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
