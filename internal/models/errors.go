package models

import "errors"

// Domain-specific errors surfaced by the data layer
var (
	// ErrTicketNotFound indicates the referenced ticket does not exist
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrColumnNotFound indicates the referenced column does not exist
	ErrColumnNotFound = errors.New("column not found")

	// ErrProjectNotFound indicates the referenced project does not exist
	ErrProjectNotFound = errors.New("project not found")

	// ErrCrossProjectMove indicates a move targeted a column belonging
	// to a different project than the ticket
	ErrCrossProjectMove = errors.New("ticket and target column belong to different projects")
)
