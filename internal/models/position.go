package models

import "time"

// Position is the lightweight record of a ticket's column and integer
// order. It lives apart from the ticket row so that reordering bursts
// only contend on these rows, never on the ticket's other data.
//
// Within a column the set of orders is always the contiguous range
// 0..N-1 after a committed move: no duplicates, no gaps.
type Position struct {
	TicketID  int
	ColumnID  int
	Order     int
	UpdatedAt time.Time
}

// MoveResult describes a committed ticket move.
type MoveResult struct {
	TicketID          int
	ProjectID         int
	OldColumnID       int
	OldOrder          int
	ColumnID          int
	Order             int
	AffectedColumnIDs []int // distinct column ids, ascending
}
