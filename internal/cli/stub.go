package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/app"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/auth"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/config"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/infra/memory"
	pgloader "github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/infra/postgres"
	redisstore "github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/infra/redis"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/logging"
	transport "github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStubCmd builds the CLI subcommand that serves the development session API.
func NewStubCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stub",
		Short: "Serve the development session API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStub(cmd.Context(), *configPath, *port)
		},
	}
}

func runStub(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var banks app.BankRepository
	var store app.SessionRepository
	if cfg.Redis.Addr != "" {
		client := newRedisClient(cfg)
		defer client.Close()
		banks = redisstore.NewBankRepository(client, loader, bankTTL)
		store = redisstore.NewSessionStore(client, sessionTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
		store = memory.NewSessionStore()
	}

	service := app.NewSessionService(store, banks, logger)
	issuer := auth.NewIssuer(cfg.Server.JWTSecret)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, issuer, logger),
		ReadTimeout: 15 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting stub API", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down stub API")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides the bank catalog when no database is configured.
func sampleBanks() map[string]domain.Bank {
	return map[string]domain.Bank{
		"b-1": {ID: "b-1", Title: "Sample bank", QuestionCount: 10},
	}
}
