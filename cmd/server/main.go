package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rpggio/tasklane/internal/app"
	"github.com/rpggio/tasklane/internal/config"
	"github.com/rpggio/tasklane/internal/logging"
	"github.com/rpggio/tasklane/internal/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == config.Default().Auth.JWTSecret {
		logger.Warn("using the development JWT secret; set TASKLANE_JWT_SECRET")
	}

	a := app.New(cfg, db, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "mcp", cfg.MCP.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	if err := waitForShutdown(logger, httpServer, a.Close, serveErr, stop); err != nil {
		logger.Error("server error", "error", err)
		_ = db.Close()
		_ = logCloser.Close()
		os.Exit(1)
	}
}

// ensureDBDir creates the parent directory of a file database.
func ensureDBDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// waitForShutdown blocks until a signal arrives or the listener fails, and
// returns the listener's error.
func waitForShutdown(logger *slog.Logger, server *http.Server, closeApp func(), serveErr <-chan error, stop <-chan os.Signal) error {
	select {
	case err := <-serveErr:
		closeApp()
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	// Websocket connections are hijacked and not tracked by Shutdown.
	closeApp()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
