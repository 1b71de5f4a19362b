package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tableroapp/tablero/internal/models"
)

// ProjectRepo owns the projects table.
type ProjectRepo struct {
	db *sql.DB
}

// Create inserts a new project (one tenant's board).
func (r *ProjectRepo) Create(ctx context.Context, name string) (*models.Project, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO projects (name) VALUES (?)", name,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, int(id))
}

// GetByID retrieves a single project.
func (r *ProjectRepo) GetByID(ctx context.Context, id int) (*models.Project, error) {
	project := &models.Project{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM projects WHERE id = ?", id,
	).Scan(&project.ID, &project.Name, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}
