package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameshelf/catalog"
	"gameshelf/config"
	"gameshelf/game"
	httpserver "gameshelf/http"
	"gameshelf/logging"
	"gameshelf/store"
	"gameshelf/ws"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gameshelf",
		Short:         "Video game collection tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "gameshelf:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCloser := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()

	slog.Info("starting gameshelf", "addr", cfg.ServerAddr, "store", cfg.StoreDriver)

	db, err := store.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	if cfg.SeedFile != "" {
		games, err := store.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := store.Seed(ctx, db, games); err != nil {
			return err
		}
		slog.Info("seeded collection", "file", cfg.SeedFile, "games", len(games))
	}

	catalogCfg := catalog.Config{
		ClientID:          cfg.IGDB.ClientID,
		ClientSecret:      cfg.IGDB.ClientSecret,
		TokenURL:          cfg.IGDB.TokenURL,
		APIURL:            cfg.IGDB.APIURL,
		Timeout:           cfg.IGDB.Timeout,
		RequestsPerSecond: cfg.IGDB.RequestsPerSecond,
		CacheTTL:          cfg.IGDB.CacheTTL,
	}
	if cfg.IGDB.CacheURL != "" {
		cache, err := catalog.NewRedisCache(ctx, cfg.IGDB.CacheURL)
		if err != nil {
			// Search still works without the cache.
			slog.Warn("search cache unavailable", "error", err)
		} else {
			defer cache.Close()
			catalogCfg.Cache = cache
		}
	}
	igdb := catalog.NewClient(catalogCfg)
	if !igdb.Configured() {
		slog.Warn("IGDB credentials missing; catalog search will fail")
	}

	feed := ws.NewFeed()
	defer feed.Close()

	collection := game.NewCollection(db, feed)

	server := httpserver.NewServer(collection, igdb, feed, httpserver.Options{
		SearchRate:  cfg.SearchRateLimit,
		SearchBurst: cfg.SearchBurst,
	})
	defer server.Close()
	srv := server.GetHTTPServer(cfg.ServerAddr)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigCtx.Done():
	}

	slog.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
