package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lanerush/engine/internal/alpaca"
	"github.com/lanerush/engine/internal/config"
	"github.com/lanerush/engine/internal/database"
	"github.com/lanerush/engine/internal/feed"
	"github.com/lanerush/engine/internal/game"
	"github.com/lanerush/engine/internal/gemini"
	"github.com/lanerush/engine/internal/recorder"
	"github.com/lanerush/engine/internal/server"
	"github.com/lanerush/engine/internal/stream"
	"github.com/lanerush/engine/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting engine",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	demo := cfg.Alpaca.Demo()
	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"demo", demo,
		"speed", cfg.Game.Speed,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional recorder database
	var rec *recorder.Recorder
	if cfg.Recorder.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Recorder.Database.Host,
			"database", cfg.Recorder.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Recorder.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		rec = recorder.New(cfg.Recorder, pool, logger)
	} else {
		logger.Info("recorder disabled, player actions will not persist")
	}

	// Enrichment sources. In demo mode the REST lookups are skipped
	// entirely; a missing Gemini key degrades every narrative to its
	// fallback.
	var sources stream.Sources
	var gameText game.TextGenerator
	if !demo {
		ac := alpaca.NewClient(cfg.Alpaca.DataURL, cfg.Alpaca.NewsURL, cfg.Alpaca.Key, cfg.Alpaca.Secret,
			alpaca.WithLogger(logger),
			alpaca.WithTimeout(cfg.Alpaca.Timeout),
			alpaca.WithMaxRetries(cfg.Alpaca.MaxRetries),
		)
		sources.News = ac
		sources.History = ac
	}
	if cfg.Gemini.APIKey != "" {
		gc := gemini.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model,
			gemini.WithLogger(logger),
			gemini.WithTimeout(cfg.Gemini.Timeout),
		)
		sources.Text = gc
		gameText = gc
	} else {
		logger.Warn("gemini api key not set, all generated text uses fallbacks")
	}

	// Live price feed
	var priceFeed feed.Feed
	var trades <-chan feed.Trade
	if !demo {
		feedCfg := feed.DefaultConfig()
		feedCfg.StockURL = cfg.Alpaca.StockStreamURL
		feedCfg.CryptoURL = cfg.Alpaca.CryptoStreamURL
		feedCfg.Key = cfg.Alpaca.Key
		feedCfg.Secret = cfg.Alpaca.Secret
		feedCfg.StockSymbols = append([]string{cfg.Game.ReferenceIndex}, cfg.Game.StockSymbols...)
		feedCfg.CryptoSymbols = cfg.Game.CryptoSymbols

		priceFeed = feed.New(feedCfg, logger)
		trades = priceFeed.Trades()
	}

	// Stream controller
	ctrl := stream.New(stream.Config{
		Speed:          cfg.Game.Speed,
		Demo:           demo,
		StockSymbols:   cfg.Game.StockSymbols,
		CryptoSymbols:  cfg.Game.CryptoSymbols,
		ReferenceIndex: cfg.Game.ReferenceIndex,
	}, sources, trades, logger)

	// Game orchestrator. A nil recorder drops actions.
	var sink game.ActionRecorder
	if rec != nil {
		sink = rec
	}
	session := game.New(ctrl, gameText, sink, logger)

	// UI gateway
	gateway := server.New(cfg.Server, session, logger)

	// Start everything in dependency order
	if rec != nil {
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
	}
	if priceFeed != nil {
		if err := priceFeed.Start(ctx); err != nil {
			logger.Error("failed to start price feed", "error", err)
			os.Exit(1)
		}
	}
	if err := ctrl.Start(ctx); err != nil {
		logger.Error("failed to start stream controller", "error", err)
		os.Exit(1)
	}
	if err := session.Start(ctx); err != nil {
		logger.Error("failed to start game orchestrator", "error", err)
		os.Exit(1)
	}
	if err := gateway.Start(ctx); err != nil {
		logger.Error("failed to start gateway", "error", err)
		os.Exit(1)
	}

	// The gateway listener runs under the group: a listener failure
	// cancels gctx, which triggers the same shutdown path as a signal.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gateway.Serve()
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		return gateway.Stop(stopCtx)
	})

	logger.Info("engine running",
		"instance_id", cfg.Instance.ID,
		"port", cfg.Server.Port,
	)

	// Wait for shutdown
	if err := g.Wait(); err != nil {
		logger.Error("run group exited with error", "error", err)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Teardown in reverse order; the gateway is already down.
	session.Stop(shutdownCtx)
	ctrl.Stop(shutdownCtx)
	if priceFeed != nil {
		priceFeed.Stop(shutdownCtx)
	}
	if rec != nil {
		rec.Stop(shutdownCtx)
	}

	// Give the loggers a beat to drain
	time.Sleep(100 * time.Millisecond)
	logger.Info("engine stopped")
}
