package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"survey-game-service/internal/app"
	"survey-game-service/internal/config"
	"survey-game-service/internal/domain"
	"survey-game-service/internal/infra/memory"
	"survey-game-service/internal/infra/postgres"
	"survey-game-service/internal/infra/queue"
	infraredis "survey-game-service/internal/infra/redis"
	transport "survey-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the survey server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	var sink app.ResponseSink = memory.NewResponseSink()
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		db := postgres.OpenBun(cfg.Postgres.URL)
		defer db.Close()

		loader = postgres.NewQuestionLoader(pool)
		sink = postgres.NewResponseSink(db)
	} else {
		logger.Warn("postgres not configured, serving built-in sample questions and keeping responses in memory")
	}

	if cfg.Queue.Enabled {
		if redisClient == nil {
			return fmt.Errorf("queue.enabled needs redis.addr")
		}
		q := queue.NewResponseQueue(queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), queueOptions(cfg), logger)
		defer q.Close()
		sink = q
		logger.Info("responses are queued for the worker")
	}

	var (
		questions app.QuestionRepository
		sessions  app.SessionRepository
		players   app.PlayerRepository
	)
	if redisClient != nil {
		questions = infraredis.NewQuestionRepository(redisClient, loader, questionTTL)
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
		players = infraredis.NewPlayerStore(redisClient)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		sessions = memory.NewSessionStore()
		players = memory.NewPlayerStore()
	}

	if err := warmUp(ctx, redisClient, questions, logger); err != nil {
		return err
	}

	service := app.NewSurveyService(questions, sessions, players, sink, cfg.Sequencer(),
		app.WithLogger(logger),
		app.WithDefaultLocale(cfg.Survey.DefaultLocale),
		app.WithLeaderboardLimit(cfg.Survey.LeaderboardLimit),
		app.WithWriteBuffer(cfg.Survey.WriteBuffer),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting survey service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	if closeErr := service.Close(shutdownCtx); closeErr != nil {
		logger.Warn("pending responses not written", "error", closeErr)
	}
	return err
}

// warmUp pings Redis and fills the question cache concurrently so the first respondent does not
// pay for either.
func warmUp(ctx context.Context, client *redis.Client, questions app.QuestionRepository, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	if client != nil {
		g.Go(func() error {
			if err := client.Ping(gctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		records, err := questions.ListQuestions(gctx)
		if err != nil {
			return fmt.Errorf("warm question cache: %w", err)
		}
		if len(records) == 0 {
			logger.Warn("question store is empty; respondents will see an empty survey")
			return nil
		}
		logger.Info("question cache warmed", "questions", len(records))
		return nil
	})
	return g.Wait()
}

// sampleQuestions is the built-in set used when no question store is configured.
func sampleQuestions() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{ID: "Q1", Category: "Personal Background", Type: "multi", Text: map[string]string{"en": "Where are you from?", "ko": "어디에서 오셨나요?"}, Options: "Korea|Uzbekistan|Kazakhstan|Bangladesh|China|Other"},
		{ID: "Q2", Category: "Personal Background", Type: "text", Text: map[string]string{"en": "What is your major?", "ko": "전공이 무엇인가요?"}},
		{ID: "Q3", Category: "Faculty", Type: "likert", Text: map[string]string{"en": "Professors explain course material clearly.", "ko": "교수님들은 강의 내용을 명확하게 설명합니다."}},
		{ID: "Q4", Category: "Faculty", Type: "yesno", Text: map[string]string{"en": "Have you met your academic advisor this semester?"}},
		{ID: "Q5", Category: "Facilities", Type: "frequency", Text: map[string]string{"en": "How often do you use the library?"}},
		{ID: "Q6", Category: "Facilities", Type: "likert", Text: map[string]string{"en": "Dormitory facilities meet my needs."}},
	}
}
