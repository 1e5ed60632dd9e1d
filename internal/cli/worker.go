package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"survey-game-service/internal/config"
	"survey-game-service/internal/infra/postgres"
	"survey-game-service/internal/infra/queue"
)

// NewWorkerCmd runs the background worker that writes queued responses to Postgres.
func NewWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Drain the response queue into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func runWorker(ctx context.Context, cfg config.Config) error {
	logger := cfg.Logger()
	if cfg.Redis.Addr == "" || cfg.Postgres.URL == "" {
		return fmt.Errorf("worker needs both redis.addr and postgres.url")
	}
	if err := runMigrations(ctx, cfg, logger); err != nil {
		return err
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := queue.NewWorker(
		queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
		postgres.NewResponseSink(db),
		queueOptions(cfg),
		logger,
	)
	return worker.Run(ctx)
}

func queueOptions(cfg config.Config) queue.Options {
	return queue.Options{
		Concurrency: cfg.Queue.Concurrency,
		MaxRetry:    cfg.Queue.MaxRetry,
		Timeout:     config.TTLDuration(cfg.Queue.Timeout, 0),
	}
}
