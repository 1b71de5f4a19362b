package database

import (
	"context"
	"errors"
	"testing"

	"github.com/tableroapp/tablero/internal/models"
)

func TestCreateAndGetTicket(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID, columnID := seedBoard(t, db)

	ticket, err := repo.CreateTicket(ctx, projectID, "Printer on fire", "third floor", columnID, 0)
	if err != nil {
		t.Fatalf("CreateTicket failed: %v", err)
	}
	if ticket.ID == 0 {
		t.Error("Expected non-zero ticket ID")
	}
	if ticket.Subject != "Printer on fire" {
		t.Errorf("Subject = %q, want %q", ticket.Subject, "Printer on fire")
	}
	if ticket.Rank != "" {
		t.Errorf("New ticket should have no rank, got %q", ticket.Rank)
	}

	got, err := repo.GetTicketByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketByID failed: %v", err)
	}
	if got.Description != "third floor" {
		t.Errorf("Description = %q, want %q", got.Description, "third floor")
	}
}

func TestGetTicketByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.GetTicketByID(context.Background(), 9999)
	if !errors.Is(err, models.ErrTicketNotFound) {
		t.Errorf("Expected ErrTicketNotFound, got %v", err)
	}
}

func TestGetTicketsByColumnOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID, columnID := seedBoard(t, db)
	t1 := seedTicket(t, db, projectID, columnID, 2, "last")
	t2 := seedTicket(t, db, projectID, columnID, 0, "first")
	t3 := seedTicket(t, db, projectID, columnID, 1, "middle")

	tickets, err := repo.GetTicketsByColumn(ctx, columnID)
	if err != nil {
		t.Fatalf("GetTicketsByColumn failed: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("Got %d tickets, want 3", len(tickets))
	}
	wantIDs := []int{t2, t3, t1}
	for i, ticket := range tickets {
		if ticket.ID != wantIDs[i] {
			t.Errorf("Ticket %d: got ID %d, want %d", i, ticket.ID, wantIDs[i])
		}
	}
}

func TestUpdateAndGetRank(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID, columnID := seedBoard(t, db)
	id := seedTicket(t, db, projectID, columnID, 0, "T1")

	rank, err := repo.GetTicketRank(ctx, id)
	if err != nil {
		t.Fatalf("GetTicketRank failed: %v", err)
	}
	if rank != "" {
		t.Errorf("Unranked ticket returned %q, want empty", rank)
	}

	if err := repo.UpdateTicketRank(ctx, id, "gn"); err != nil {
		t.Fatalf("UpdateTicketRank failed: %v", err)
	}

	rank, err = repo.GetTicketRank(ctx, id)
	if err != nil {
		t.Fatalf("GetTicketRank failed: %v", err)
	}
	if rank != "gn" {
		t.Errorf("Rank = %q, want %q", rank, "gn")
	}
}

func TestUpdateRankNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	err := repo.UpdateTicketRank(context.Background(), 9999, "n")
	if !errors.Is(err, models.ErrTicketNotFound) {
		t.Errorf("Expected ErrTicketNotFound, got %v", err)
	}
}

func TestReseedColumnRanks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID, columnID := seedBoard(t, db)
	t1 := seedTicket(t, db, projectID, columnID, 0, "T1")
	t2 := seedTicket(t, db, projectID, columnID, 1, "T2")
	t3 := seedTicket(t, db, projectID, columnID, 2, "T3")

	// Long keys from repeated insertion at the same spot.
	for id, key := range map[int]string{t1: "annnn", t2: "annnng", t3: "b"} {
		if err := repo.UpdateTicketRank(ctx, id, key); err != nil {
			t.Fatalf("UpdateTicketRank failed: %v", err)
		}
	}

	keys, err := repo.ReseedColumnRanks(ctx, columnID)
	if err != nil {
		t.Fatalf("ReseedColumnRanks failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("Got %d keys, want 3", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("Reseeded keys not strictly increasing: %v", keys)
		}
	}
	for _, key := range keys {
		if len(key) != 1 {
			t.Errorf("Reseeded key %q should be a single character", key)
		}
	}

	// Keys must land in board order.
	wantByID := map[int]string{t1: keys[0], t2: keys[1], t3: keys[2]}
	for id, want := range wantByID {
		got, err := repo.GetTicketRank(ctx, id)
		if err != nil {
			t.Fatalf("GetTicketRank failed: %v", err)
		}
		if got != want {
			t.Errorf("Ticket %d rank = %q, want %q", id, got, want)
		}
	}
}

func TestReseedEmptyColumn(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, columnID := seedBoard(t, db)

	keys, err := repo.ReseedColumnRanks(context.Background(), columnID)
	if err != nil {
		t.Fatalf("ReseedColumnRanks failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no keys for empty column, got %v", keys)
	}
}

func TestGetTicketCountByColumn(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID, columnID := seedBoard(t, db)
	seedTicket(t, db, projectID, columnID, 0, "T1")
	seedTicket(t, db, projectID, columnID, 1, "T2")

	count, err := repo.GetTicketCountByColumn(ctx, columnID)
	if err != nil {
		t.Fatalf("GetTicketCountByColumn failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}
