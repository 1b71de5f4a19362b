package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tableroapp/tablero/internal/models"
)

// ColumnRepo owns the columns table.
type ColumnRepo struct {
	db *sql.DB
}

// Create inserts a new workflow column for a project.
func (r *ColumnRepo) Create(ctx context.Context, projectID int, name string) (*models.Column, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO columns (project_id, name) VALUES (?, ?)",
		projectID, name,
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

// GetByID retrieves a single column.
func (r *ColumnRepo) GetByID(ctx context.Context, id int) (*models.Column, error) {
	column := &models.Column{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, project_id, name, created_at FROM columns WHERE id = ?",
		id,
	).Scan(&column.ID, &column.ProjectID, &column.Name, &column.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrColumnNotFound
	}
	if err != nil {
		return nil, err
	}
	return column, nil
}

// GetByProject retrieves all columns for a project.
func (r *ColumnRepo) GetByProject(ctx context.Context, projectID int) ([]*models.Column, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, project_id, name, created_at FROM columns WHERE project_id = ? ORDER BY id",
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []*models.Column
	for rows.Next() {
		column := &models.Column{}
		if err := rows.Scan(&column.ID, &column.ProjectID, &column.Name, &column.CreatedAt); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
