package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fillblank/internal/app"
	"fillblank/internal/bot"
	"fillblank/internal/config"
	"fillblank/internal/engine"
	"fillblank/internal/ports"
	"fillblank/internal/ports/httpapi"
	"fillblank/internal/ports/sources"
	"fillblank/internal/ports/store"
	"fillblank/internal/ports/zaplog"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fillblank: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func openStore(ctx context.Context, cfg *config.Config) (ports.SnapshotStore, func() error, error) {
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		s, err := store.OpenSQL(ctx, store.DriverPostgres, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorageSQLite:
		s, err := store.OpenSQL(ctx, store.DriverSQLite, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return store.NewMemory(), func() error { return nil }, nil
	}
}

func run(configPath string) error {
	if err := config.LoadConfig(configPath); err != nil {
		return err
	}
	cfg := config.GetConfig()
	if cfg.TokenSecret == "" {
		return errors.New("token_secret must be set, e.g. with FILLBLANK_TOKEN_SECRET")
	}

	z, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer z.Sync()
	logger := zaplog.New(z)

	if err := bot.LoadIdentities(cfg.AIIdentitiesPath); err != nil {
		logger.Warn("Could not load AI identities, using generated names: %v", err)
	}

	ctx := context.Background()
	snapshots, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Type, err)
	}
	defer closeStore()

	decks, err := sources.NewResolver(cfg.DecksPath)
	if err != nil {
		return err
	}

	sockets := httpapi.NewSockets(logger)
	hub := engine.NewHub(app.NewService(nil, app.WithBotLevel(cfg.BotLevel())), snapshots, sockets, decks, logger, engine.Options{
		MutationWait:    cfg.MutationWait,
		DeliveryRetries: cfg.DeliveryRetries,
		DeliveryBackoff: cfg.DeliveryBackoff,
	})
	defer hub.Close()

	restored, err := hub.Restore(ctx)
	if err != nil {
		logger.Error("Restoring lobbies failed: %v", err)
	}
	logger.Info("Restored %d lobbies from %s storage", restored, cfg.Storage.Type)

	tokens := app.NewTokenService(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
	api := httpapi.NewServer(hub, decks, tokens, sockets, logger, httpapi.WithDefaultRules(cfg.GameRules()))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errs:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down server...")
	return srv.Shutdown(shutdownCtx)
}
