package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"app": {"AppPort": "9090", "StorageDriver": "memory", "HotPostLikeThreshold": 5, "AllowedOrigins": ["https://a.example", "https://b.example"]},
		"auth": {"JWTSecret": "file-secret", "AccessTokenTTL": "1h"},
		"redis": {"RedisHost": "cache", "RedisPort": 6380},
		"oauth": {"GoogleClientID": "gid", "SocialVerifyTokens": true},
		"log": {"Level": "debug", "GinPath": "logs/gin.log"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.AppPort != "9090" || c.StorageDriver != "memory" || c.HotPostLikeThreshold != 5 {
		t.Fatalf("app section: %+v", c)
	}
	if len(c.AllowedOrigins) != 2 || c.JWTSecret != "file-secret" || c.AccessTokenTTL != time.Hour {
		t.Fatalf("auth/origins: %+v", c)
	}
	if c.RedisHost != "cache" || c.RedisPort != 6380 || c.GoogleClientID != "gid" || !c.SocialVerifyTokens {
		t.Fatalf("redis/oauth: %+v", c)
	}
	if c.LogLevel != "debug" || c.GinPath != "logs/gin.log" {
		t.Fatalf("log: %+v", c)
	}

	if err := loadJSONConfig(filepath.Join(t.TempDir(), "missing.json"), &c); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0o600)
	if err := loadJSONConfig(bad, &c); err == nil {
		t.Fatal("invalid json accepted")
	}
}

func TestDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "7000")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://x.example ,, https://y.example")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")

	var c AppConfig
	applyDefaults(&c)
	if c.AccessTokenTTL != 7*24*time.Hour || c.RefreshTokenTTL != 30*24*time.Hour || c.HotPostLikeThreshold != 10 {
		t.Fatalf("defaults: %+v", c)
	}
	applyEnvOverrides(&c)
	if c.AppPort != "7000" || c.StorageDriver != "postgres" || c.RefreshTokenTTL != 48*time.Hour || c.RateLimitPerMinute != 30 {
		t.Fatalf("overrides: %+v", c)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://y.example" {
		t.Fatalf("origins: %q", c.AllowedOrigins)
	}
}

func TestSet(t *testing.T) {
	c := Set(AppConfig{JWTSecret: "s", AppEnv: "Production"})
	if c.JWTRefreshSecret != "s:refresh" || !c.IsProduction() {
		t.Fatalf("set: %+v", c)
	}
	if got := Get(); got.JWTSecret != "s" || got.AppPort != "8080" {
		t.Fatalf("get after set: %+v", got)
	}
}

type widget struct {
	ID   uint
	Name string
}

func TestOpenDatabase(t *testing.T) {
	db, err := OpenDatabase(AppConfig{StorageDriver: "sqlite", SQLitePath: ":memory:", LogLevel: "silent"}, &widget{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Create(&widget{Name: "x"}).Error; err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := OpenDatabase(AppConfig{StorageDriver: "sqlite", SQLitePath: filepath.Join(dir, "app.db"), LogLevel: "silent"}); err != nil {
		t.Fatalf("open file sqlite: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("sqlite dir not created: %v", err)
	}

	if _, err := OpenDatabase(AppConfig{StorageDriver: "oracle"}); err == nil {
		t.Fatal("unsupported driver accepted")
	}
}

func TestToGormLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"debug":  logger.Info,
		"info":   logger.Warn,
		"error":  logger.Error,
		"silent": logger.Silent,
		"":       logger.Warn,
	}
	for in, want := range cases {
		if got := toGormLogLevel(in); got != want {
			t.Errorf("toGormLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
