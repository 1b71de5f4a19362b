package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestWithTxCommits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := withTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO projects (name) VALUES (?)", "committed")
		return err
	})
	if err != nil {
		t.Fatalf("withTx failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO projects (name) VALUES (?)", "rolled back"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the inner error, got %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d, want 0 after rollback", count)
	}
}

func TestNullStringToString(t *testing.T) {
	if got := nullStringToString(sql.NullString{String: "x", Valid: true}); got != "x" {
		t.Errorf("Got %q, want %q", got, "x")
	}
	if got := nullStringToString(sql.NullString{}); got != "" {
		t.Errorf("Got %q, want empty", got)
	}
}
