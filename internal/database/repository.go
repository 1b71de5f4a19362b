package database

import (
	"context"
	"database/sql"

	"github.com/tableroapp/tablero/internal/models"
)

// Repository provides a unified interface to all data operations.
// It composes domain-specific repositories using struct embedding.
type Repository struct {
	*ProjectRepo
	*ColumnRepo
	*TicketRepo
	*PositionRepo
}

// NewRepository creates a new Repository instance wrapping the given database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		ProjectRepo:  &ProjectRepo{db: db},
		ColumnRepo:   &ColumnRepo{db: db},
		TicketRepo:   &TicketRepo{db: db},
		PositionRepo: &PositionRepo{db: db},
	}
}

// Wrapper methods for ProjectRepo to disambiguate the embedded API
func (r *Repository) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	return r.ProjectRepo.Create(ctx, name)
}

func (r *Repository) GetProjectByID(ctx context.Context, id int) (*models.Project, error) {
	return r.ProjectRepo.GetByID(ctx, id)
}

// Wrapper methods for ColumnRepo
func (r *Repository) CreateColumn(ctx context.Context, projectID int, name string) (*models.Column, error) {
	return r.ColumnRepo.Create(ctx, projectID, name)
}

func (r *Repository) GetColumnByID(ctx context.Context, id int) (*models.Column, error) {
	return r.ColumnRepo.GetByID(ctx, id)
}

func (r *Repository) GetColumnsByProject(ctx context.Context, projectID int) ([]*models.Column, error) {
	return r.ColumnRepo.GetByProject(ctx, projectID)
}

// Wrapper methods for TicketRepo
func (r *Repository) CreateTicket(ctx context.Context, projectID int, subject, description string, columnID, order int) (*models.Ticket, error) {
	return r.TicketRepo.Create(ctx, projectID, subject, description, columnID, order)
}

func (r *Repository) GetTicketByID(ctx context.Context, id int) (*models.Ticket, error) {
	return r.TicketRepo.GetByID(ctx, id)
}

func (r *Repository) GetTicketsByColumn(ctx context.Context, columnID int) ([]*models.Ticket, error) {
	return r.TicketRepo.GetByColumn(ctx, columnID)
}

func (r *Repository) GetTicketRank(ctx context.Context, id int) (string, error) {
	return r.TicketRepo.GetRank(ctx, id)
}

func (r *Repository) UpdateTicketRank(ctx context.Context, id int, rankKey string) error {
	return r.TicketRepo.UpdateRank(ctx, id, rankKey)
}

func (r *Repository) GetTicketCountByColumn(ctx context.Context, columnID int) (int, error) {
	return r.TicketRepo.GetCountByColumn(ctx, columnID)
}
