package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blitz-quiz-service/internal/app"
	"blitz-quiz-service/internal/bank"
	"blitz-quiz-service/internal/config"
	"blitz-quiz-service/internal/domain"
	"blitz-quiz-service/internal/infra/memory"
	pgsource "blitz-quiz-service/internal/infra/postgres"
	redisinfra "blitz-quiz-service/internal/infra/redis"
	transport "blitz-quiz-service/internal/transport/http"
	"blitz-quiz-service/internal/transport/tcp"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Printf("no config at %s, using defaults", configPath)
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
		finalPort = "5002"
	}
	dashboardPort := cfg.Server.DashboardPort
	if dashboardPort == "" {
		dashboardPort = "8080"
	}

	window := config.Duration(cfg.Quiz.Window, 5*time.Second)
	grace := config.Duration(cfg.Quiz.Grace, 2*time.Second)
	poolTTL := config.Duration(cfg.Quiz.PoolTTL, 10*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	questions := cfg.Quiz.Questions
	if len(questions) == 0 {
		questions = defaultQuestions()
	}
	var loader bank.Source
	loader, err = memory.NewStaticSource(questions)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgsource.NewQuestionSource(pool)
	}

	var source bank.Source
	if redisClient != nil {
		source = redisinfra.NewPoolCache(redisClient, loader, poolTTL)
	} else {
		source = memory.NewPoolCache(loader, poolTTL)
	}

	var ledger app.CompletionLedger
	if redisClient != nil {
		ledger = redisinfra.NewLedger(redisClient)
	} else {
		ledger = memory.NewLedger()
	}

	service := app.NewQuizService(bank.New(source), ledger, window)

	quizServer := tcp.NewServer(service, grace)
	if err := quizServer.Listen(":" + finalPort); err != nil {
		return err
	}

	dashboard := transport.NewDashboardHandler(ledger)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/results", dashboard.ServeResults)
	mux.HandleFunc("/ws", dashboard.ServeWS)

	httpServer := &http.Server{
		Addr:         ":" + dashboardPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		log.Printf("quiz server listening on :%s (window %s)", finalPort, window)
		if err := quizServer.Serve(serveCtx); err != nil {
			log.Printf("quiz server failed: %v", err)
		}
	}()
	go func() {
		log.Printf("dashboard listening on :%s", dashboardPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start dashboard: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// defaultQuestions is the built-in pool used when neither YAML questions nor
// Postgres are configured.
func defaultQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:          "What is the capital of France?",
			Options:       []string{"London", "Berlin", "Paris", "Madrid"},
			CorrectAnswer: "Paris",
		},
		{
			Text:          "Which planet is known as the Red Planet?",
			Options:       []string{"Venus", "Mars", "Jupiter", "Saturn"},
			CorrectAnswer: "Mars",
		},
		{
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectAnswer: "4",
		},
		{
			Text:          "Who painted the Mona Lisa?",
			Options:       []string{"Van Gogh", "Da Vinci", "Picasso", "Rembrandt"},
			CorrectAnswer: "Da Vinci",
		},
	}
}
