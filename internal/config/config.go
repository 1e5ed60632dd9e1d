package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"survey-game-service/internal/survey"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Survey struct {
		Sections         []string `yaml:"sections"`
		AppendUnlisted   bool     `yaml:"appendUnlisted"`
		DefaultLocale    string   `yaml:"defaultLocale"`
		LeaderboardLimit int      `yaml:"leaderboardLimit"`
		WriteBuffer      int      `yaml:"writeBuffer"`
	} `yaml:"survey"`
	Queue struct {
		Enabled     bool   `yaml:"enabled"`
		Concurrency int    `yaml:"concurrency"`
		MaxRetry    int    `yaml:"maxRetry"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"queue"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Sequencer builds the section sequencer from the survey settings. An empty section list keeps
// the built-in order.
func (c Config) Sequencer() *survey.Sequencer {
	var opts []survey.SequencerOption
	if c.Survey.AppendUnlisted {
		opts = append(opts, survey.WithUnlistedSections())
	}
	return survey.NewSequencer(c.Survey.Sections, opts...)
}

// Logger builds the process logger. Unknown levels fall back to info.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
