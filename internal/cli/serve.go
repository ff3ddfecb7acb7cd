package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizly/internal/config"
	"quizly/internal/domain"
	"quizly/internal/infra/memory"
	pgstore "quizly/internal/infra/postgres"
	rediscache "quizly/internal/infra/redis"
	"quizly/internal/llm"
	"quizly/internal/server"
)

// NewServeCmd builds the CLI subcommand to start the API server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logrus.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8000"
	}

	var store server.QuestionStore = memory.NewQuestionStore(seedQuestions())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewQuestionStore(pool)
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		store = rediscache.NewAnswerCache(redisClient, store, ttl)
	}

	var generator server.QuestionGenerator
	provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.Model, llm.Config{
		OllamaHost:    cfg.LLM.OllamaHost,
		OpenAIAPIKey:  cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
	})
	if err != nil {
		log.WithError(err).Warn("question generator disabled")
	} else {
		generator = provider
	}

	service := server.NewQuizService(store, generator)
	handler := server.NewHandler(service, log)

	srv := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // generation calls can be slow
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedQuestions provides a starter question bank when no Postgres is
// configured; the migration seeds the same data for real deployments.
func seedQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   1,
			Text: "What is the capital of France?",
			Options: []domain.Option{
				{ID: "a", Text: "London"},
				{ID: "b", Text: "Berlin"},
				{ID: "c", Text: "Paris"},
				{ID: "d", Text: "Madrid"},
			},
			CorrectAnswer: "c",
			Category:      "geography",
		},
		{
			ID:   2,
			Text: "What is the largest ocean on Earth?",
			Options: []domain.Option{
				{ID: "a", Text: "Atlantic Ocean"},
				{ID: "b", Text: "Indian Ocean"},
				{ID: "c", Text: "Arctic Ocean"},
				{ID: "d", Text: "Pacific Ocean"},
			},
			CorrectAnswer: "d",
			Category:      "geography",
		},
		{
			ID:   3,
			Text: "Which planet is known as the Red Planet?",
			Options: []domain.Option{
				{ID: "a", Text: "Venus"},
				{ID: "b", Text: "Mars"},
				{ID: "c", Text: "Jupiter"},
				{ID: "d", Text: "Saturn"},
			},
			CorrectAnswer: "b",
			Category:      "science",
		},
		{
			ID:   4,
			Text: "What is the chemical symbol for gold?",
			Options: []domain.Option{
				{ID: "a", Text: "Go"},
				{ID: "b", Text: "Gd"},
				{ID: "c", Text: "Au"},
				{ID: "d", Text: "Ag"},
			},
			CorrectAnswer: "c",
			Category:      "science",
		},
		{
			ID:   5,
			Text: "What is 2 + 2?",
			Options: []domain.Option{
				{ID: "a", Text: "3"},
				{ID: "b", Text: "4"},
				{ID: "c", Text: "5"},
				{ID: "d", Text: "6"},
			},
			CorrectAnswer: "b",
			Category:      "math",
		},
		{
			ID:   6,
			Text: "Who wrote 'Romeo and Juliet'?",
			Options: []domain.Option{
				{ID: "a", Text: "Charles Dickens"},
				{ID: "b", Text: "William Shakespeare"},
				{ID: "c", Text: "Jane Austen"},
				{ID: "d", Text: "Mark Twain"},
			},
			CorrectAnswer: "b",
			Category:      "literature",
		},
		{
			ID:   7,
			Text: "What is the currency of Japan?",
			Options: []domain.Option{
				{ID: "a", Text: "Yuan"},
				{ID: "b", Text: "Won"},
				{ID: "c", Text: "Yen"},
				{ID: "d", Text: "Rupee"},
			},
			CorrectAnswer: "c",
			Category:      "general",
		},
		{
			ID:   8,
			Text: "How many days are there in a leap year?",
			Options: []domain.Option{
				{ID: "a", Text: "364"},
				{ID: "b", Text: "365"},
				{ID: "c", Text: "366"},
				{ID: "d", Text: "367"},
			},
			CorrectAnswer: "c",
			Category:      "general",
		},
	}
}
