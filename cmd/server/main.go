// Package main is the entry point for the snippet vault server.
//
// MAIN PACKAGE IN GO:
// main stays minimal. It loads configuration, builds the logger, opens the
// database and hands everything to internal/server. All actual logic lives
// in imported packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/snippet-vault/internal/config"
	"github.com/sakif/snippet-vault/internal/repository/sqlstore"
	"github.com/sakif/snippet-vault/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// A .env file is a local convenience; in deployments the variables come
	// from the environment and the file is absent.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", slog.String("error", err.Error()))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// JSON in production for log shippers, text everywhere else.
	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	// === 3. OPEN THE DATABASE ===
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		logger.Error("invalid database driver", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Database.IsSQLite() && cfg.Database.DSN != ":memory:" {
		// os.MkdirAll is `mkdir -p`: the data directory may not exist yet.
		dbDir := filepath.Dir(cfg.Database.DSN)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := sqlstore.New(ctx, dialect, cfg.Database.DSN)
	cancel()
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, db, logger)
	if err != nil {
		db.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	// and closes the database on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(app.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if app.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
