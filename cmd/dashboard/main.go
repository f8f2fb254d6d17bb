package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cardmarket-bi/internal/amqp"
	"cardmarket-bi/internal/cache"
	"cardmarket-bi/internal/config"
	"cardmarket-bi/internal/core"
	apphttp "cardmarket-bi/internal/http"
	"cardmarket-bi/internal/ingest"
	"cardmarket-bi/internal/log"
	"cardmarket-bi/internal/sources"
	"cardmarket-bi/internal/sources/gcs"
	"cardmarket-bi/internal/sources/gsheets"
	"cardmarket-bi/internal/sources/httpfetch"
	"cardmarket-bi/internal/sources/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentApp})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resources := []sources.Resource{
		{Key: core.ResourceOrders, URL: cfg.OrdersURL},
		{Key: core.ResourceArticles, URL: cfg.ArticlesURL},
		{Key: core.ResourceExpenses, URL: cfg.ExpensesURL, Sheet: cfg.ExpensesSheet},
	}

	router, closeSources, err := newRouter(ctx, cfg, resources, logger)
	if err != nil {
		logger.Error("Failed to initialize data sources", log.FieldError, err)
		os.Exit(1)
	}
	defer closeSources()

	store, err := ingest.NewStore(sources.NewTableFetcher(router, cfg.FetchTimeout), resources, ingest.Options{
		OrdersDateOrder:   cfg.OrdersOrder(),
		ExpensesDateOrder: cfg.ExpensesOrder(),
		TTL:               cfg.CacheTTL,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("Failed to initialize resource store", log.FieldError, err)
		os.Exit(1)
	}

	if cfg.Preload {
		start := time.Now()
		if err := store.Warm(ctx); err != nil {
			// Pages report the failure themselves; keep serving.
			logger.Warn("Preload failed", log.FieldOperation, log.OpWarm, log.FieldError, err)
		} else {
			logger.Info("Preload completed", log.FieldOperation, log.OpWarm, "duration", time.Since(start).String())
		}
	}

	cacheManager := cache.NewManager()
	var gate *apphttp.Gate
	if cfg.CostsGateEnabled() {
		gate, err = newGate(cfg)
		if err != nil {
			logger.Error("Failed to configure costs password", log.FieldError, err)
			os.Exit(1)
		}
		cacheManager.Register(gate.Sessions())
	} else {
		logger.Info("Costs page disabled, no password configured")
	}
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	var broadcaster apphttp.Broadcaster
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.InstanceID, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		broadcaster = client

		go func() {
			if err := client.ConsumeRefresh(ctx, amqp.RefreshHandler(store)); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh consumer stopped", log.FieldError, err)
			}
		}()
		logger.Info("Refresh broadcast enabled", "exchange", cfg.AMQPExchange, log.FieldInstance, cfg.InstanceID)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:                    ":" + cfg.Port,
		Tables:                  store,
		Logger:                  logger,
		Gate:                    gate,
		UnlockAttemptsPerMinute: cfg.UnlockAttemptsPerMinute,
		Broadcaster:             broadcaster,
		InstanceID:              cfg.InstanceID,
		StoreURL:                cfg.StoreURL,
		CacheTTL:                cfg.CacheTTL,
		TrustedProxies:          cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting dashboard server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"cache_ttl", cfg.CacheTTL.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// newRouter registers a fetcher for every scheme the configured URLs use.
// The storage and Sheets clients are only created when a URL needs them.
func newRouter(ctx context.Context, cfg *config.Config, resources []sources.Resource, logger *log.Logger) (*sources.Router, func(), error) {
	router := sources.NewRouter().Handle(httpfetch.New(cfg.FetchTimeout), "http", "https")
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	schemes := map[string]bool{}
	for _, r := range resources {
		if u, err := url.Parse(r.URL); err == nil {
			schemes[u.Scheme] = true
		}
	}

	if schemes["mem"] || schemes["file"] {
		mem, err := memory.NewFromDir(cfg.DataDir)
		if err != nil {
			return nil, closeAll, err
		}
		router.Handle(mem, "mem", "file")
		logger.Info("Local data backend ready", "data_dir", cfg.DataDir)
	}

	if schemes["gs"] {
		client, err := gcs.New(ctx, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = client.Close() })
		router.Handle(client, "gs")
		logger.Info("Cloud Storage backend ready", "authenticated", cfg.GCSCredentialsFile != "")
	}

	if schemes["gsheets"] {
		client, err := gsheets.New(ctx, cfg.SheetsCredentialsFile)
		if err != nil {
			return nil, closeAll, err
		}
		router.Handle(client, "gsheets")
		logger.Info("Google Sheets backend ready")
	}

	return router, closeAll, nil
}

func newGate(cfg *config.Config) (*apphttp.Gate, error) {
	hash := []byte(cfg.CostsPasswordHash)
	if len(hash) == 0 {
		var err error
		if hash, err = apphttp.HashPassword(cfg.CostsPassword); err != nil {
			return nil, err
		}
	}
	return apphttp.NewGate(hash, cfg.SessionTTL)
}
