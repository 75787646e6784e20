// Package main is the entry point for the todo tracker API.
//
// main only reads configuration, builds the logger, makes sure the SQLite
// directory exists and hands over to internal/server.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/todo-tracker/internal/config"
	"github.com/sakif/todo-tracker/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; slog's default handler writes to stderr.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.Driver() == config.DriverSQLite {
		if err := ensureDir(cfg.SQLitePath()); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger emits JSON at Info in production and readable text at Debug
// everywhere else.
func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// ensureDir creates the parent directory of a file-backed SQLite database,
// like `mkdir -p`. In-memory and URI-style paths are left alone.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dbPath), 0o755)
}
