package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"survey-game-service/internal/config"
	"survey-game-service/internal/domain"
	"survey-game-service/internal/infra/postgres"
	infraredis "survey-game-service/internal/infra/redis"
)

// NewSeedCmd upserts questions from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert survey questions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/questions.yaml", "YAML file with the question list")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, file string) error {
	logger := cfg.Logger()
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	records, err := readQuestionFile(file)
	if err != nil {
		return err
	}
	if err := runMigrations(ctx, cfg, logger); err != nil {
		return err
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()
	n, err := postgres.SeedQuestions(ctx, db, records)
	if err != nil {
		return err
	}
	logger.Info("questions seeded", "count", n, "file", file)

	if cfg.Redis.Addr != "" {
		client := newRedisClient(cfg)
		defer client.Close()
		cache := infraredis.NewQuestionRepository(client, nil, 0)
		if err := cache.Invalidate(ctx); err != nil {
			logger.Warn("question cache not invalidated", "error", err)
		}
	}
	return nil
}

// questionFile accepts either a bare list or a document with a questions key.
type questionFile struct {
	Questions []domain.QuestionRecord `yaml:"questions"`
}

func readQuestionFile(path string) ([]domain.QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.QuestionRecord
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-")) {
		err = yaml.Unmarshal(data, &records)
	} else {
		var doc questionFile
		err = yaml.Unmarshal(data, &doc)
		records = doc.Questions
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoQuestions)
	}
	return records, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: 5 * time.Second,
	})
}
