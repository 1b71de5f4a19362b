package database

import (
	"context"

	"github.com/tableroapp/tablero/internal/models"
)

// DataStore defines the data operations the service layer depends on.
// Depending on this interface rather than *Repository keeps services
// testable against fakes.
type DataStore interface {
	// Projects
	CreateProject(ctx context.Context, name string) (*models.Project, error)
	GetProjectByID(ctx context.Context, id int) (*models.Project, error)

	// Columns
	CreateColumn(ctx context.Context, projectID int, name string) (*models.Column, error)
	GetColumnByID(ctx context.Context, id int) (*models.Column, error)
	GetColumnsByProject(ctx context.Context, projectID int) ([]*models.Column, error)

	// Tickets
	CreateTicket(ctx context.Context, projectID int, subject, description string, columnID, order int) (*models.Ticket, error)
	GetTicketByID(ctx context.Context, id int) (*models.Ticket, error)
	GetTicketsByColumn(ctx context.Context, columnID int) ([]*models.Ticket, error)
	GetTicketRank(ctx context.Context, id int) (string, error)
	UpdateTicketRank(ctx context.Context, id int, rankKey string) error
	GetTicketCountByColumn(ctx context.Context, columnID int) (int, error)
	ReseedColumnRanks(ctx context.Context, columnID int) ([]string, error)

	// Positions
	MoveTicket(ctx context.Context, ticketID, targetColumnID, targetOrder int) (*models.MoveResult, error)
	GetPosition(ctx context.Context, ticketID int) (*models.Position, error)
	GetPositionsByColumn(ctx context.Context, columnID int) ([]*models.Position, error)
}

// Compile-time verification that *Repository implements DataStore
var _ DataStore = (*Repository)(nil)
