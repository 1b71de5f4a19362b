// Package engine assembles the ordering engine: configuration,
// logging, database, daemon connection, and the ticket service.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tableroapp/tablero/internal/config"
	"github.com/tableroapp/tablero/internal/database"
	"github.com/tableroapp/tablero/internal/events"
	"github.com/tableroapp/tablero/internal/logging"
	ticketsvc "github.com/tableroapp/tablero/internal/services/ticket"
)

// Engine is a fully wired instance of the ordering engine.
type Engine struct {
	Repo    *database.Repository
	Tickets ticketsvc.Service

	db          *sql.DB
	eventClient *events.Client
	cfg         *config.Config
}

// Open loads configuration, initializes logging and the database, and
// connects to the notification daemon when one is running. A missing
// daemon is not an error: the engine works without live updates.
func Open(ctx context.Context) (*Engine, error) {
	if err := logging.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Connect to daemon for live updates (optional - daemon may not be running)
	eventClient, err := events.NewClient(cfg.Daemon.SocketPath, cfg.Events.Debounce())
	if err != nil {
		daemonErr := events.ClassifyDaemonError(err)
		slog.Warn("failed to create daemon client", "message", daemonErr.Message, "hint", daemonErr.Hint)
		slog.Info("continuing without live updates")
		eventClient = nil
	} else if err := eventClient.Connect(ctx); err != nil {
		daemonErr := events.ClassifyDaemonError(err)
		slog.Warn("failed to connect to daemon", "message", daemonErr.Message, "hint", daemonErr.Hint)
		slog.Info("continuing without live updates")
		eventClient = nil
	}

	db, err := database.InitDB(ctx, cfg.Database.Path)
	if err != nil {
		if eventClient != nil {
			_ = eventClient.Close()
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := database.NewRepository(db)

	// The Publisher interface has a non-nil concrete value even when
	// the client is nil, so pass nil explicitly.
	var publisher events.Publisher
	if eventClient != nil {
		publisher = eventClient
	}

	return &Engine{
		Repo:        repo,
		Tickets:     ticketsvc.NewService(repo, publisher, cfg.Move),
		db:          db,
		eventClient: eventClient,
		cfg:         cfg,
	}, nil
}

// Config returns the loaded configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Listen subscribes to board change events for the given project
// (0 = all projects). Returns nil when no daemon connection exists.
func (e *Engine) Listen(ctx context.Context, projectID int) (<-chan events.Event, error) {
	if e.eventClient == nil {
		return nil, nil
	}
	if err := e.eventClient.Subscribe(projectID); err != nil {
		return nil, err
	}
	return e.eventClient.Listen(ctx)
}

// Close releases the daemon connection and the database, allowing a
// short drain period for in-flight operations.
func (e *Engine) Close() error {
	if e.eventClient != nil {
		if err := e.eventClient.Close(); err != nil {
			slog.Error("error closing event client", "error", err)
		}
	}

	// Small delay to allow operations to wrap up
	time.Sleep(100 * time.Millisecond)

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("error closing database: %w", err)
	}
	return nil
}
