package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vmunix/kaizoku/internal/config"
	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/internal/logging"
	"github.com/vmunix/kaizoku/internal/server"
)

func runServer(configPath string) error {
	if configPath == "" {
		p, err := config.Discover()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.Server.LogLevel, cfg.Server.LogFormat)

	db, err := database.Open(cfg.Database.Path, database.Options{})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	app := server.NewApp(db, cfg, nil, logger)
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting",
		"config", configPath,
		"database", cfg.Database.Path,
		"library", cfg.Library.Root,
		"mangal", cfg.Mangal.Binary,
		"notifications", app.Notifier.Enabled(),
		"integrations", app.Integrations.Enabled(),
		"watch", cfg.Library.Watch,
		"log_level", cfg.Server.LogLevel,
	)

	if err := server.NewRunner(app, logger).Run(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
