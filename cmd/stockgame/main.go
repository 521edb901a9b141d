package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/stockgame/internal/config"
	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/efreitasn/stockgame/internal/engine"
	"github.com/efreitasn/stockgame/internal/handler"
	"github.com/efreitasn/stockgame/internal/pricing"
	"github.com/efreitasn/stockgame/internal/realtime"
	"github.com/efreitasn/stockgame/internal/service"
	"github.com/efreitasn/stockgame/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// quoteSource is what the services need from a price backend.
type quoteSource interface {
	pricing.PriceSource
	pricing.TrendSource
}

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "stockgame",
		Short:        "Multiplayer stock trading game server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newHealthcheckCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func newHealthcheckCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check /healthz on the local server and exit 0 or 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			client := &http.Client{Timeout: timeout}
			resp, err := client.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthz returned %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
	return cmd
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Storage.
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Prices.
	prices := newPriceSource(cfg, logger)

	// Events fan out to websocket clients and webhook sinks.
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	events := service.MultiPublisher{hub}
	if len(cfg.WebhookURLs) > 0 {
		events = append(events, service.NewWebhookNotifier(cfg.WebhookURLs, cfg.WebhookTimeout, logger))
	}

	// Services share one locker so trades and game settlement serialize per key.
	locks := service.NewLocker()
	executor := engine.NewExecutor(nil)

	playerSvc := service.NewPlayerService(repo, repo, prices, events, locks, cfg.StartingCash, cfg.TradeRetries)
	tradeSvc := service.NewTradeService(repo, prices, executor, events, locks, cfg.TradeRetries)
	boardSvc := service.NewLeaderboardService(repo, prices)
	gameSvc := service.NewGameService(repo, repo, prices, events, locks, cfg.TradeRetries, logger)
	marketSvc := service.NewMarketService(prices, prices, cfg.PriceFetchConcurrency, logger)

	scheduler := engine.NewGameScheduler(cfg.GameTickInterval, repo, gameSvc, logger)
	scheduler.Start(ctx)

	router := handler.NewRouter(handler.Services{
		Players:     playerSvc,
		Trades:      tradeSvc,
		Leaderboard: boardSvc,
		Games:       gameSvc,
		Market:      marketSvc,
	}, hub.ServeWS, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("price_mode", cfg.PriceMode),
			slog.String("store", cfg.Store),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown: stop HTTP server, then cancel background workers.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Repository, func(), error) {
	if cfg.Store != config.StoreMongo {
		return store.NewMemoryStore(), func() {}, nil
	}

	ms, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.ReadTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	logger.Info("connected to mongodb", slog.String("database", cfg.MongoDatabase))

	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := ms.Close(closeCtx); err != nil {
			logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
		}
	}
	return ms, closeFn, nil
}

func newPriceSource(cfg *config.Config, logger *slog.Logger) quoteSource {
	if cfg.PriceMode != config.PriceModeRemote {
		return pricing.NewFixedPriceSource(cfg.FixedPrice, cfg.FixedPrices)
	}
	return pricing.NewRemotePriceSource(pricing.RemoteConfig{
		BaseURL:     cfg.QuoteAPIURL,
		APIKey:      cfg.QuoteAPIKey,
		Timeout:     cfg.PriceFetchTimeout,
		Retries:     cfg.PriceFetchRetries,
		RetryDelay:  pricing.NewRetryDelay(cfg.PriceRetryBackoff, cfg.PriceFetchTimeout),
		Concurrency: cfg.PriceFetchConcurrency,
	}, &http.Client{}, logger)
}
