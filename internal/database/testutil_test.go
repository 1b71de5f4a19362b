package database

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory database and runs migrations.
// A single pooled connection keeps every query on the same in-memory
// database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := runMigrations(context.Background(), db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// seedBoard creates a project with one column and returns both IDs.
func seedBoard(t *testing.T, db *sql.DB) (projectID, columnID int) {
	t.Helper()
	ctx := context.Background()
	repo := NewRepository(db)

	project, err := repo.CreateProject(ctx, "Support")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	column, err := repo.CreateColumn(ctx, project.ID, "Open")
	if err != nil {
		t.Fatalf("Failed to create column: %v", err)
	}
	return project.ID, column.ID
}

// seedTicket inserts a ticket with a materialized position row at the
// given order, so move tests start from a known layout.
func seedTicket(t *testing.T, db *sql.DB, projectID, columnID, order int, subject string) int {
	t.Helper()
	result, err := db.Exec(
		`INSERT INTO tickets (project_id, subject, column_id, column_order) VALUES (?, ?, ?, ?)`,
		projectID, subject, columnID, order,
	)
	if err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
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
		t.Fatalf("Failed to create position row: %v", err)
	}
	return int(id)
}

// assertColumnOrder verifies the column holds exactly the given tickets
// at contiguous positions 0..N-1, in order.
func assertColumnOrder(t *testing.T, repo *Repository, columnID int, wantTicketIDs ...int) {
	t.Helper()
	positions, err := repo.GetPositionsByColumn(context.Background(), columnID)
	if err != nil {
		t.Fatalf("Failed to read positions: %v", err)
	}
	if len(positions) != len(wantTicketIDs) {
		t.Fatalf("Column %d has %d tickets, want %d", columnID, len(positions), len(wantTicketIDs))
	}
	for i, pos := range positions {
		if pos.Order != i {
			t.Errorf("Position %d: got order %d, want %d (orders must be contiguous)", i, pos.Order, i)
		}
		if pos.TicketID != wantTicketIDs[i] {
			t.Errorf("Position %d: got ticket %d, want %d", i, pos.TicketID, wantTicketIDs[i])
		}
	}
}
