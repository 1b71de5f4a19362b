package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tableroapp/tablero/internal/models"
	"github.com/tableroapp/tablero/internal/rank"
)

// TicketRepo owns the tickets table.
type TicketRepo struct {
	db *sql.DB
}

// Create inserts a new ticket at the given column and order. The
// position row is created lazily on the ticket's first move, not here.
func (r *TicketRepo) Create(ctx context.Context, projectID int, subject, description string, columnID, order int) (*models.Ticket, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (project_id, subject, description, column_id, column_order)
		 VALUES (?, ?, ?, ?, ?)`,
		projectID, subject, description, columnID, order,
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

// GetByID retrieves a single ticket.
func (r *TicketRepo) GetByID(ctx context.Context, id int) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var description, rankKey sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, subject, description, column_id, column_order, rank, created_at, updated_at
		 FROM tickets WHERE id = ?`,
		id,
	).Scan(
		&ticket.ID, &ticket.ProjectID, &ticket.Subject, &description,
		&ticket.ColumnID, &ticket.ColumnOrder, &rankKey,
		&ticket.CreatedAt, &ticket.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	ticket.Description = nullStringToString(description)
	ticket.Rank = nullStringToString(rankKey)
	return ticket, nil
}

// GetByColumn retrieves all tickets in a column, ordered by their
// denormalized column order.
func (r *TicketRepo) GetByColumn(ctx context.Context, columnID int) ([]*models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, subject, description, column_id, column_order, rank, created_at, updated_at
		 FROM tickets
		 WHERE column_id = ?
		 ORDER BY column_order`,
		columnID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		var description, rankKey sql.NullString
		if err := rows.Scan(
			&ticket.ID, &ticket.ProjectID, &ticket.Subject, &description,
			&ticket.ColumnID, &ticket.ColumnOrder, &rankKey,
			&ticket.CreatedAt, &ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ticket.Description = nullStringToString(description)
		ticket.Rank = nullStringToString(rankKey)
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// GetRank returns a ticket's rank key, empty if none has been assigned.
func (r *TicketRepo) GetRank(ctx context.Context, id int) (string, error) {
	var rankKey sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT rank FROM tickets WHERE id = ?", id,
	).Scan(&rankKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrTicketNotFound
	}
	if err != nil {
		return "", err
	}
	return nullStringToString(rankKey), nil
}

// UpdateRank stores a ticket's rank key.
func (r *TicketRepo) UpdateRank(ctx context.Context, id int, rankKey string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tickets
		 SET rank = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		rankKey, id,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrTicketNotFound
	}
	return nil
}

// ReseedColumnRanks rewrites the rank keys of every ticket in a column
// with a fresh evenly-spaced sequence, in column order. This is the
// periodic rebalance entry point for rank keys that have grown long.
// Returns the assigned keys in order.
func (r *TicketRepo) ReseedColumnRanks(ctx context.Context, columnID int) ([]string, error) {
	var keys []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM tickets
			 WHERE column_id = ?
			 ORDER BY column_order, id`,
			columnID,
		)
		if err != nil {
			return err
		}
		var ids []int
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		keys = rank.InitialRanks(len(ids))
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tickets
				 SET rank = ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ?`,
				keys[i], id,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// GetCountByColumn returns the number of tickets in a column.
func (r *TicketRepo) GetCountByColumn(ctx context.Context, columnID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE column_id = ?", columnID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
