package ticket

import "errors"

// Validation errors
var (
	ErrInvalidTicketID = errors.New("invalid ticket ID")
	ErrInvalidColumnID = errors.New("invalid column ID")
	ErrInvalidOrder    = errors.New("invalid order: must be >= 0")
)

// Movement errors
var (
	// ErrConcurrencyExhausted indicates a move kept colliding with
	// concurrent movers and ran out of retries. The move did not
	// happen; the caller decides whether to resubmit.
	ErrConcurrencyExhausted = errors.New("move retries exhausted")
)
