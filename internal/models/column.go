package models

import "time"

// Column is an ordered, named container of tickets representing a
// workflow stage.
type Column struct {
	ID        int
	ProjectID int
	Name      string
	CreatedAt time.Time
}

// Project groups the columns and tickets of one tenant's board.
type Project struct {
	ID        int
	Name      string
	CreatedAt time.Time
}
