package database

import (
	"context"
	"database/sql"
)

// runMigrations creates the database schema if needed
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS columns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			subject TEXT NOT NULL,
			description TEXT,
			column_id INTEGER NOT NULL,
			column_order INTEGER NOT NULL DEFAULT 0,
			rank TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY (column_id) REFERENCES columns(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return err
	}

	// Position rows are created lazily on a ticket's first move and
	// deleted with the ticket. No UNIQUE(column_id, position) index:
	// SQLite checks uniqueness per row during a bulk UPDATE, which
	// would trip the shift statements; contiguity is owned by the
	// mover and verified in tests.
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ticket_positions (
			ticket_id INTEGER PRIMARY KEY,
			column_id INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE CASCADE,
			FOREIGN KEY (column_id) REFERENCES columns(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tickets_column ON tickets(column_id, column_order)",
		"CREATE INDEX IF NOT EXISTS idx_tickets_rank ON tickets(column_id, rank)",
		"CREATE INDEX IF NOT EXISTS idx_columns_project ON columns(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_positions_column ON ticket_positions(column_id, position)",
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}

	return nil
}
