package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/panelvault/internal/adapter/driven/aesgcm"
	"github.com/ericfisherdev/panelvault/internal/adapter/driven/pterodactyl"
	"github.com/ericfisherdev/panelvault/internal/adapter/driven/redislock"
	sqliteadapter "github.com/ericfisherdev/panelvault/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/panelvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/panelvault/internal/application"
	"github.com/ericfisherdev/panelvault/internal/config"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on a missing or malformed key).
	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"key_version", cfg.KeyVersion,
		"purge_days", cfg.PurgeDays,
		"purge_interval", cfg.PurgeInterval,
		"redis", cfg.HasRedis(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	cipher, err := aesgcm.New(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	aliasStore := sqliteadapter.NewAliasRepo(db)
	probe := pterodactyl.NewClient(cfg.ProbeTimeout, slog.Default())

	var sweepLock driven.SweepLock = redislock.NewLocal()
	if cfg.HasRedis() {
		lock, client, err := redislock.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sweepLock = lock
		slog.Info("redis sweep lock enabled", "addr", cfg.RedisAddr)
	}

	// 6. Metrics registry.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := application.NewMetrics(registry)

	// 7. Create services.
	vault := application.NewVault(credentialStore, cipher, application.VaultConfig{
		KeyVersion:    cfg.KeyVersion,
		LabelAlphabet: cfg.LabelAlphabet,
	}, slog.Default(), metrics)
	linkSvc := application.NewLinkService(vault, probe, slog.Default(), metrics)
	resolver := application.NewResolver(vault, vault, aliasStore, probe, slog.Default(), metrics)
	aliasDir := application.NewAliasDirectory(aliasStore, slog.Default())
	purgeSvc := application.NewPurgeService(vault, sweepLock, cfg.PurgeDays, cfg.PurgeInterval, slog.Default(), metrics)

	go purgeSvc.Start(ctx)

	// 8. Create HTTP handler.
	apiHandler := httphandler.NewHandler(vault, linkSvc, resolver, aliasDir, purgeSvc, db, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, registry, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Resolve may probe several panels sequentially.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("panelvault started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
