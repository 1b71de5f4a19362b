package models

import "time"

// Ticket represents a single helpdesk ticket on the kanban board
type Ticket struct {
	ID          int
	ProjectID   int
	Subject     string
	Description string
	ColumnID    int    // denormalized mirror of the ticket's Position
	ColumnOrder int    // denormalized mirror of the ticket's Position
	Rank        string // lexicographic rank key, independent of ColumnOrder
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
