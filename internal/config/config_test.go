package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoadReadsAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
postgres:
  url: postgres://quiz@localhost/quizdb
quiz:
  ttl: 30s
room:
  timezone: Asia/Tokyo
  send_buffer: 16
  rate_limit: 5
  rate_burst: 10
  fixtures: config/fixtures.yaml
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected server/redis section: %+v", cfg)
	}
	if cfg.Room.SendBuffer != 16 || cfg.Room.RateLimit != 5 || cfg.Room.RateBurst != 10 {
		t.Fatalf("unexpected room section: %+v", cfg.Room)
	}
	if cfg.Room.Fixtures != "config/fixtures.yaml" {
		t.Fatalf("unexpected fixtures path %q", cfg.Room.Fixtures)
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s quiz ttl, got %v", got)
	}
	if loc := cfg.Location(); loc.String() != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo, got %v", loc)
	}

	logger := logrus.New()
	cfg.ConfigureLogger(logger)
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter, got %T", logger.Formatter)
	}
}

func TestFallbacks(t *testing.T) {
	var cfg Config
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC for empty timezone")
	}
	cfg.Room.Timezone = "Mars/Olympus"
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC for unknown timezone")
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad duration, got %v", got)
	}
	if IntOr(0, 64) != 64 || IntOr(8, 64) != 8 {
		t.Fatalf("IntOr fallback broken")
	}
	if FloatOr(-1, 2.5) != 2.5 {
		t.Fatalf("FloatOr fallback broken")
	}

	logger := logrus.New()
	cfg.Log.Level = "chatty"
	cfg.ConfigureLogger(logger)
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level fallback, got %v", logger.GetLevel())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
