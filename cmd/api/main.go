package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"perpdesk/internal/accounts"
	"perpdesk/internal/aptos"
	"perpdesk/internal/auth"
	"perpdesk/internal/chain"
	"perpdesk/internal/config"
	"perpdesk/internal/db"
	"perpdesk/internal/events"
	"perpdesk/internal/health"
	"perpdesk/internal/httpserver"
	"perpdesk/internal/journal"
	"perpdesk/internal/markets"
	"perpdesk/internal/orders"
	"perpdesk/internal/submission"
	"perpdesk/internal/telemetry"
	"perpdesk/internal/xyra"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()
	catalogue, err := config.LoadMarkets(cfg.MarketsFile)
	if err != nil {
		log.Fatal(err)
	}
	key, err := aptos.ParsePrivateKey(cfg.AptosPrivateKey)
	if err != nil {
		log.Fatal(err)
	}

	tel, err := telemetry.NewProvider(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal(err)
	}
	metrics, err := telemetry.NewSubmissionMetrics(tel.Meter())
	if err != nil {
		log.Fatal(err)
	}

	var pool *pgxpool.Pool
	var store *journal.Store
	if cfg.DBDSN != "" {
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		store = journal.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal(err)
		}
	} else {
		logger.Warn("DB_DSN not set, submission journal disabled")
	}

	api := xyra.NewClient(cfg.XyraBaseURL, cfg.XyraAPIKey, cfg.APIRateLimit)
	node := aptos.NewNode(cfg.AptosNodeURL)
	signer := aptos.NewSigner(node, key, cfg.MaxGasAmount, cfg.GasUnitPrice, logger)
	if cfg.XyraUserAddress != "" {
		want, err := aptos.NormalizeAddress(cfg.XyraUserAddress)
		if err != nil {
			log.Fatal(err)
		}
		if !strings.EqualFold(want, signer.Address()) {
			log.Fatalf("XYRA_USER_ADDRESS %s does not match signing key address %s", want, signer.Address())
		}
	}

	bus := events.NewBus()
	registry := markets.NewRegistry(catalogue, api, logger)
	accountSvc := accounts.NewService(api, logger)
	executor := chain.NewExecutor(api, signer, node, logger)
	opts := submission.Options{
		ConfirmTimeout: cfg.ConfirmTimeout,
		Events:         bus,
		Metrics:        metrics,
		Logger:         logger,
	}
	var submissions orders.Journal
	if store != nil {
		opts.Recorder = store
		submissions = store
	}
	submitSvc := submission.NewService(registry, accountSvc, executor, opts)

	authSvc := auth.NewService(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:     auth.NewHandler(authSvc, signer.Address()),
		AccountsHandler: accounts.NewHandler(accountSvc, api, registry, bus),
		OrderHandler:    orders.NewHandler(submitSvc, registry, submissions),
		HealthHandler:   health.NewHandler(pool, node, time.Now(), cfg.HTTPAddr, signer.Address(), bus.Subscribers),
		AuthService:     authSvc,
		WSHandler:       httpserver.NewWSHandler(bus, authSvc, cfg.WebSocketOrigin),
		RateLimiter:     httpserver.NewRateLimiter(10, 30),
		Origin:          cfg.WebSocketOrigin,
		Logger:          logger,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	logger.Info("server listening", "addr", cfg.HTTPAddr, "signer", signer.Address(),
		"markets", len(catalogue), "journal", store != nil)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
