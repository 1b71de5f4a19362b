// Package testutil provides shared helpers for tests that need a real
// database or a running daemon.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// SetupTestDB creates an in-memory database with the full schema.
// The pool is pinned to a single connection: each in-memory connection
// is its own database, so a second connection would see empty tables.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.ExecContext(context.Background(), "PRAGMA foreign_keys = ON")
	if err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// createTestSchema creates the complete database schema for testing.
// Kept in sync with the migrations in internal/database.
func createTestSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS columns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

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
	);

	CREATE TABLE IF NOT EXISTS ticket_positions (
		ticket_id INTEGER PRIMARY KEY,
		column_id INTEGER NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE CASCADE,
		FOREIGN KEY (column_id) REFERENCES columns(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_column ON tickets(column_id, column_order);
	CREATE INDEX IF NOT EXISTS idx_tickets_rank ON tickets(column_id, rank);
	CREATE INDEX IF NOT EXISTS idx_columns_project ON columns(project_id);
	CREATE INDEX IF NOT EXISTS idx_positions_column ON ticket_positions(column_id, position);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateTestProject inserts a project and returns its ID.
func CreateTestProject(t *testing.T, db *sql.DB, name string) int {
	t.Helper()
	result, err := db.Exec("INSERT INTO projects (name) VALUES (?)", name)
	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get project ID: %v", err)
	}
	return int(id)
}

// CreateTestColumn inserts a column and returns its ID.
func CreateTestColumn(t *testing.T, db *sql.DB, projectID int, name string) int {
	t.Helper()
	result, err := db.Exec("INSERT INTO columns (project_id, name) VALUES (?, ?)", projectID, name)
	if err != nil {
		t.Fatalf("Failed to create test column: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get column ID: %v", err)
	}
	return int(id)
}

// CreateTestTicket inserts a ticket with a materialized position row at
// the given order, so move tests start from a known board layout.
func CreateTestTicket(t *testing.T, db *sql.DB, projectID, columnID, order int, subject string) int {
	t.Helper()
	result, err := db.Exec(
		`INSERT INTO tickets (project_id, subject, column_id, column_order) VALUES (?, ?, ?, ?)`,
		projectID, subject, columnID, order,
	)
	if err != nil {
		t.Fatalf("Failed to create test ticket: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get ticket ID: %v", err)
	}
	_, err = db.Exec(
		"INSERT INTO ticket_positions (ticket_id, column_id, position) VALUES (?, ?, ?)",
		id, columnID, order,
	)
	if err != nil {
		t.Fatalf("Failed to create test position: %v", err)
	}
	return int(id)
}
