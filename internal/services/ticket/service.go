// Package ticket implements the board ordering operations: the
// retried, deadlock-safe ticket move and the rank-key placement
// alternative that never shifts neighbors.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tableroapp/tablero/internal/config"
	"github.com/tableroapp/tablero/internal/database"
	"github.com/tableroapp/tablero/internal/events"
	"github.com/tableroapp/tablero/internal/models"
	"github.com/tableroapp/tablero/internal/rank"
)

// Service defines all ticket ordering operations
type Service interface {
	// Integer position system: relocate a ticket, shifting neighbors
	MoveTicket(ctx context.Context, req MoveTicketRequest) (*models.MoveResult, error)

	// Rank key system: O(1) placement without shifting neighbors
	PlaceTicketBetween(ctx context.Context, ticketID, beforeTicketID, afterTicketID int) (string, error)
	ReseedColumnRanks(ctx context.Context, columnID int) ([]string, error)
	RankBetween(before, after string) (string, error)
	InitialRanks(n int) []string

	// Read operations
	GetTicketsByColumn(ctx context.Context, columnID int) ([]*models.Ticket, error)
}

// MoveTicketRequest encapsulates all data needed to move a ticket.
// MaxRetries of 0 means use the configured default.
type MoveTicketRequest struct {
	TicketID   int
	ColumnID   int
	Order      int
	MaxRetries int
}

// service implements Service
type service struct {
	repo        database.DataStore
	eventClient events.Publisher
	cfg         config.MoveConfig
}

// NewService creates a new ticket service. eventClient may be nil when
// no notification infrastructure is running.
func NewService(repo database.DataStore, eventClient events.Publisher, cfg config.MoveConfig) Service {
	return &service{
		repo:        repo,
		eventClient: eventClient,
		cfg:         cfg,
	}
}

// MoveTicket relocates a ticket to (ColumnID, Order). Each attempt is
// one transaction; serialization conflicts are retried with exponential
// backoff up to MaxRetries, then surfaced as ErrConcurrencyExhausted.
// A successful move notifies subscribers of the affected columns,
// best effort, after commit.
func (s *service) MoveTicket(ctx context.Context, req MoveTicketRequest) (*models.MoveResult, error) {
	if req.TicketID <= 0 {
		return nil, ErrInvalidTicketID
	}
	if req.ColumnID <= 0 {
		return nil, ErrInvalidColumnID
	}
	if req.Order < 0 {
		return nil, ErrInvalidOrder
	}

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.cfg.MaxRetries
	}

	// base * 2^attempt, no jitter, bounded attempts
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.cfg.RetryBaseDelay()
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(maxRetries)), ctx)

	var result *models.MoveResult
	attempt := 0
	operation := func() error {
		attempt++
		res, err := s.repo.MoveTicket(ctx, req.TicketID, req.ColumnID, req.Order)
		if err != nil {
			if database.IsConflict(err) {
				slog.Debug("move conflict, will retry",
					"ticket_id", req.TicketID,
					"attempt", attempt,
					"max_retries", maxRetries)
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if database.IsConflict(err) || errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("move gave up after repeated conflicts",
				"ticket_id", req.TicketID,
				"attempts", attempt,
				"error", err)
			return nil, fmt.Errorf("move ticket %d: %w", req.TicketID, ErrConcurrencyExhausted)
		}
		return nil, err
	}

	// The move has committed; notification is best effort and must
	// never turn a committed move into a failure.
	s.publishBoardEvent(result.ProjectID, result.AffectedColumnIDs)

	return result, nil
}

// PlaceTicketBetween assigns the ticket a rank key sorting strictly
// between its two neighbor tickets. A neighbor ID of 0 means that side
// is unbounded (placing first or last). Returns the assigned key.
func (s *service) PlaceTicketBetween(ctx context.Context, ticketID, beforeTicketID, afterTicketID int) (string, error) {
	if ticketID <= 0 {
		return "", ErrInvalidTicketID
	}

	var before, after string
	var err error
	if beforeTicketID > 0 {
		if before, err = s.repo.GetTicketRank(ctx, beforeTicketID); err != nil {
			return "", fmt.Errorf("failed to read rank of ticket %d: %w", beforeTicketID, err)
		}
	}
	if afterTicketID > 0 {
		if after, err = s.repo.GetTicketRank(ctx, afterTicketID); err != nil {
			return "", fmt.Errorf("failed to read rank of ticket %d: %w", afterTicketID, err)
		}
	}

	key, err := rank.Between(before, after)
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateTicketRank(ctx, ticketID, key); err != nil {
		return "", fmt.Errorf("failed to store rank: %w", err)
	}

	if ticket, err := s.repo.GetTicketByID(ctx, ticketID); err == nil {
		s.publishBoardEvent(ticket.ProjectID, []int{ticket.ColumnID})
	}

	return key, nil
}

// ReseedColumnRanks rewrites a column's rank keys with a fresh
// evenly-spaced sequence, the periodic rebalance for keys that have
// grown long.
func (s *service) ReseedColumnRanks(ctx context.Context, columnID int) ([]string, error) {
	if columnID <= 0 {
		return nil, ErrInvalidColumnID
	}

	column, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		return nil, err
	}

	keys, err := s.repo.ReseedColumnRanks(ctx, columnID)
	if err != nil {
		return nil, err
	}

	s.publishBoardEvent(column.ProjectID, []int{columnID})

	return keys, nil
}

// RankBetween exposes the rank generator for callers that manage their
// own neighbor lookup.
func (s *service) RankBetween(before, after string) (string, error) {
	return rank.Between(before, after)
}

// InitialRanks exposes the even-spread seeding keys.
func (s *service) InitialRanks(n int) []string {
	return rank.InitialRanks(n)
}

// GetTicketsByColumn retrieves a column's tickets in board order.
func (s *service) GetTicketsByColumn(ctx context.Context, columnID int) ([]*models.Ticket, error) {
	if columnID <= 0 {
		return nil, ErrInvalidColumnID
	}
	return s.repo.GetTicketsByColumn(ctx, columnID)
}

// publishBoardEvent notifies subscribers that columns changed. Failures
// are logged by the publish path and swallowed here.
func (s *service) publishBoardEvent(projectID int, columnIDs []int) {
	if s.eventClient == nil {
		return
	}

	_ = events.PublishWithRetry(s.eventClient, events.Event{
		Type:              events.EventBoardChanged,
		ProjectID:         projectID,
		AffectedColumnIDs: columnIDs,
		Timestamp:         time.Now(),
	}, s.cfg.NotifyRetries)
}
