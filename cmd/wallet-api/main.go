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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	walletapi "github.com/aegis-sign/solwallet/internal/api"
	"github.com/aegis-sign/solwallet/internal/app/account"
	"github.com/aegis-sign/solwallet/internal/app/custody"
	"github.com/aegis-sign/solwallet/internal/app/reconcile"
	"github.com/aegis-sign/solwallet/internal/app/relay"
	"github.com/aegis-sign/solwallet/internal/infra/ledger"
	"github.com/aegis-sign/solwallet/internal/infra/store"
	"github.com/aegis-sign/solwallet/internal/infra/store/mongodb"
	"github.com/aegis-sign/solwallet/internal/infra/token"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accounts, records, storeCloser, err := configureStores(ctx, logger)
	if err != nil {
		logger.Error("failed to configure store", "error", err)
		os.Exit(1)
	}
	defer storeCloser()

	secret := os.Getenv("SOLWALLET_JWT_SECRET")
	if secret == "" {
		logger.Error("SOLWALLET_JWT_SECRET is required")
		os.Exit(1)
	}
	issuer, err := token.New([]byte(secret))
	if err != nil {
		logger.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()

	custodySvc, err := custody.NewService(accounts,
		custody.WithLogger(logger),
		custody.WithCacheTTL(readDuration("SOLWALLET_KEY_CACHE_TTL", 5*time.Minute)),
		custody.WithMetrics(custody.NewMetrics(reg)),
	)
	if err != nil {
		logger.Error("failed to configure custody service", "error", err)
		os.Exit(1)
	}
	accountSvc, err := account.NewService(accounts, custodySvc, issuer, account.WithLogger(logger))
	if err != nil {
		logger.Error("failed to configure account service", "error", err)
		os.Exit(1)
	}

	ledgerClient := ledger.NewClient(ledger.LoadConfigFromEnv())
	relaySvc, err := relay.New(ledgerClient, custodySvc, records,
		relay.WithLogger(logger),
		relay.WithMetrics(relay.NewMetrics(reg)),
	)
	if err != nil {
		logger.Error("failed to configure relay", "error", err)
		os.Exit(1)
	}
	engine, err := reconcile.NewEngine(records, ledgerClient, reconcile.Config{
		Logger:  logger,
		Metrics: reconcile.NewMetrics(reg),
	})
	if err != nil {
		logger.Error("failed to configure reconcile engine", "error", err)
		os.Exit(1)
	}

	// HTTP server wiring
	mux := http.NewServeMux()
	walletapi.NewHTTPHandler(accountSvc, relaySvc, engine, issuer).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{
		Addr:    envOrDefault("SOLWALLET_HTTP_ADDR", ":3000"),
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server closed unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func readDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// configureStores 按环境选择持久层：给定 SOLWALLET_MONGO_URI 时用 MongoDB，
// 否则退回进程内存实现（仅适合本地调试，进程退出即丢数据）。
func configureStores(ctx context.Context, logger *slog.Logger) (store.AccountStore, store.RecordStore, func(), error) {
	uri := os.Getenv("SOLWALLET_MONGO_URI")
	if uri == "" {
		logger.Warn("SOLWALLET_MONGO_URI not set, using in-memory store")
		m := store.NewMemory()
		return m, m, func() {}, nil
	}
	database := envOrDefault("SOLWALLET_MONGO_DB", "solwallet")
	s, err := mongodb.Dial(ctx, uri, database)
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("dial mongodb: %w", err)
	}
	logger.Info("connected to mongodb", "database", database)
	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(closeCtx)
	}
	return s, s, cleanup, nil
}
