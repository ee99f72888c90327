package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Game     GameConfig
	AI       AIConfig
	Archive  ArchiveConfig
	LogLevel string
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// DatabaseConfig selects the state store. An empty URL means the in-memory store.
type DatabaseConfig struct {
	URL            string
	MaxConcurrency int64
}

// RedisConfig enables the distributed commit lock when a URL or host is set.
type RedisConfig struct {
	URL       string
	Host      string
	Port      string
	Password  string
	DB        int
	LockTTL   time.Duration
	KeyPrefix string
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

type GameConfig struct {
	CatalogFile string
}

type AIConfig struct {
	OpenAIKey string
	Model     string
}

type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func (c ArchiveConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Load reads .env (if present) and the environment on top of defaults.
// Each call builds a fresh viper instance so tests can vary the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONCURRENCY", 10)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL_SECONDS", 30)
	v.SetDefault("LOCK_KEY_PREFIX", "retail-sim:commit:")
	v.SetDefault("CATALOG_FILE", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ARCHIVE_ENDPOINT", "")
	v.SetDefault("ARCHIVE_ACCESS_KEY", "")
	v.SetDefault("ARCHIVE_SECRET_KEY", "")
	v.SetDefault("ARCHIVE_BUCKET", "")
	v.SetDefault("ARCHIVE_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_USE_SSL", true)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			AllowedOrigins: v.GetStringSlice("ALLOWED_ORIGINS"),
			MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		},
		Database: DatabaseConfig{
			URL:            v.GetString("DATABASE_URL"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("REDIS_URL"),
			Host:      v.GetString("REDIS_HOST"),
			Port:      v.GetString("REDIS_PORT"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			LockTTL:   time.Duration(v.GetInt("LOCK_TTL_SECONDS")) * time.Second,
			KeyPrefix: v.GetString("LOCK_KEY_PREFIX"),
		},
		Game: GameConfig{CatalogFile: v.GetString("CATALOG_FILE")},
		AI: AIConfig{
			OpenAIKey: v.GetString("OPENAI_API_KEY"),
			Model:     v.GetString("OPENAI_MODEL"),
		},
		Archive: ArchiveConfig{
			Endpoint:  v.GetString("ARCHIVE_ENDPOINT"),
			AccessKey: v.GetString("ARCHIVE_ACCESS_KEY"),
			SecretKey: v.GetString("ARCHIVE_SECRET_KEY"),
			Bucket:    v.GetString("ARCHIVE_BUCKET"),
			Region:    v.GetString("ARCHIVE_REGION"),
			UseSSL:    v.GetBool("ARCHIVE_USE_SSL"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT must not be empty")
	}
	if c.Database.MaxConcurrency <= 0 {
		return fmt.Errorf("DB_MAX_CONCURRENCY must be positive, got %d", c.Database.MaxConcurrency)
	}
	if c.Redis.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL_SECONDS must be positive")
	}
	if c.Archive.Endpoint != "" && c.Archive.Bucket == "" {
		return fmt.Errorf("ARCHIVE_BUCKET is required when ARCHIVE_ENDPOINT is set")
	}
	return nil
}
