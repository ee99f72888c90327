package config_test

import (
	"testing"
	"time"

	"retail-sim/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("ARCHIVE_ENDPOINT", "")
	t.Setenv("SERVER_PORT", "8080")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "" {
		t.Errorf("database url = %q, want empty (memory store)", cfg.Database.URL)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis enabled without configuration")
	}
	if cfg.Archive.Enabled() {
		t.Error("archive enabled without configuration")
	}
	if cfg.Redis.LockTTL != 30*time.Second {
		t.Errorf("lock ttl = %v", cfg.Redis.LockTTL)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("LOCK_TTL_SECONDS", "5")
	t.Setenv("ARCHIVE_ENDPOINT", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.LockTTL != 5*time.Second {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"ok", func(c *config.Config) {}, false},
		{"empty port", func(c *config.Config) { c.Server.Port = "" }, true},
		{"zero ttl", func(c *config.Config) { c.Redis.LockTTL = 0 }, true},
		{"archive without bucket", func(c *config.Config) { c.Archive.Endpoint = "s3.local" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &config.Config{
				Server:   config.ServerConfig{Port: "8080"},
				Database: config.DatabaseConfig{MaxConcurrency: 1},
				Redis:    config.RedisConfig{LockTTL: time.Second},
			}
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
