package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.HTTPAddr != ":5000" {
		t.Errorf("expected default addr :5000, got %q", cfg.App.HTTPAddr)
	}
	if cfg.App.ReminderInterval != time.Minute {
		t.Errorf("expected default reminder interval 1m, got %v", cfg.App.ReminderInterval)
	}
	if cfg.App.ResendCooldown != 60*time.Second {
		t.Errorf("expected default resend cooldown 60s, got %v", cfg.App.ResendCooldown)
	}
	if cfg.Security.TokenTTL != 720*time.Hour {
		t.Errorf("expected default token TTL 720h, got %v", cfg.Security.TokenTTL)
	}
}

func TestLoadParsesDurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "app": {
    "http_addr": ":8080",
    "reminder_interval": "30s",
    "reminder_window": "48h",
    "resend_cooldown": "90s"
  },
  "security": {
    "jwt_secret": "file_secret",
    "token_ttl": "24h"
  }
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.HTTPAddr != ":8080" {
		t.Errorf("http_addr: got %q", cfg.App.HTTPAddr)
	}
	if cfg.App.ReminderInterval != 30*time.Second {
		t.Errorf("reminder_interval: got %v", cfg.App.ReminderInterval)
	}
	if cfg.App.ReminderWindow != 48*time.Hour {
		t.Errorf("reminder_window: got %v", cfg.App.ReminderWindow)
	}
	if cfg.App.ResendCooldown != 90*time.Second {
		t.Errorf("resend_cooldown: got %v", cfg.App.ResendCooldown)
	}
	if cfg.Security.TokenTTL != 24*time.Hour {
		t.Errorf("token_ttl: got %v", cfg.Security.TokenTTL)
	}
	// 文件未覆盖的字段回落默认值
	if cfg.App.WorkerPoolSize != 10 {
		t.Errorf("worker_pool_size default: got %d", cfg.App.WorkerPoolSize)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr default: got %q", cfg.Redis.Addr)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"app": {"reminder_interval": "soon"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration string")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "env_secret")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("TOKEN_TTL", "12h")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.HTTPAddr != ":9090" {
		t.Errorf("PORT override: got %q", cfg.App.HTTPAddr)
	}
	if cfg.Security.JWTSecret != "env_secret" {
		t.Errorf("JWT_SECRET override: got %q", cfg.Security.JWTSecret)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("REDIS_ADDR override: got %q", cfg.Redis.Addr)
	}
	if cfg.Security.TokenTTL != 12*time.Hour {
		t.Errorf("TOKEN_TTL override: got %v", cfg.Security.TokenTTL)
	}
}

func TestEnvOverridesMySQLDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "tracker")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dsn := cfg.MySQL.DSN
	for _, want := range []string{"db.internal:3306", "s3cret", "tracker"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	original := getDefaultConfig()
	original.App.HTTPAddr = ":7070"
	original.App.ReminderWindow = 6 * time.Hour
	original.Security.TokenTTL = 48 * time.Hour

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.App.HTTPAddr != ":7070" {
		t.Errorf("http_addr: got %q", loaded.App.HTTPAddr)
	}
	if loaded.App.ReminderWindow != 6*time.Hour {
		t.Errorf("reminder_window: got %v", loaded.App.ReminderWindow)
	}
	if loaded.Security.TokenTTL != 48*time.Hour {
		t.Errorf("token_ttl: got %v", loaded.Security.TokenTTL)
	}
}
