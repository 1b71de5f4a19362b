package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tableroapp/tablero/internal/config"
	"github.com/tableroapp/tablero/internal/daemon"
	"github.com/tableroapp/tablero/internal/logging"
)

func main() {
	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancel()

	if err := logging.Init(); err != nil {
		slog.Error("failed to initialize logging", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure the socket directory exists with secure permissions
	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.SocketPath), 0700); err != nil {
		slog.Error("failed to create socket directory", "error", err)
		os.Exit(1)
	}

	server, err := daemon.NewServer(cfg.Daemon.SocketPath)
	if err != nil {
		slog.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	slog.Info("tablero daemon starting", "socket_path", cfg.Daemon.SocketPath, "pid", os.Getpid())

	// Start the daemon (blocks until shutdown)
	if err := server.Start(ctx); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}

	slog.Info("tablero daemon shutting down gracefully")
}
