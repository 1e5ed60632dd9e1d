package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"survey-game-service/internal/survey"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
log:
  level: debug
  format: json
redis:
  addr: localhost:6379
  ttl: 2h
survey:
  sections: ["Faculty", "Facilities"]
  appendUnlisted: true
  defaultLocale: ko
  leaderboardLimit: 25
queue:
  enabled: true
  maxRetry: 3
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if TTLDuration(cfg.Redis.TTL, time.Minute) != 2*time.Hour {
		t.Fatalf("expected 2h redis ttl")
	}
	if !cfg.Queue.Enabled || cfg.Queue.MaxRetry != 3 {
		t.Fatalf("unexpected queue settings %+v", cfg.Queue)
	}
	if cfg.Survey.DefaultLocale != "ko" || cfg.Survey.LeaderboardLimit != 25 {
		t.Fatalf("unexpected survey settings %+v", cfg.Survey)
	}

	order := cfg.Sequencer().Order()
	if len(order) != 2 || order[0] != "Faculty" {
		t.Fatalf("expected configured order, got %v", order)
	}
	sections := cfg.Sequencer().Build([]survey.Question{
		survey.NewQuestion("Q1", "Elsewhere", "likert", nil, nil),
	})
	if len(sections) != 1 || sections[0].Name != "Elsewhere" {
		t.Fatalf("expected unlisted section appended, got %+v", sections)
	}
	if !cfg.Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected debug logging enabled")
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	if got := len(cfg.Sequencer().Order()); got != len(survey.DefaultSectionOrder()) {
		t.Fatalf("expected built-in order, got %d sections", got)
	}
	if cfg.Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected info level by default")
	}
}

func TestTTLDuration(t *testing.T) {
	if TTLDuration("", time.Minute) != time.Minute {
		t.Fatalf("expected fallback for empty")
	}
	if TTLDuration("nonsense", time.Minute) != time.Minute {
		t.Fatalf("expected fallback for invalid")
	}
	if TTLDuration("90s", time.Minute) != 90*time.Second {
		t.Fatalf("expected parsed duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
