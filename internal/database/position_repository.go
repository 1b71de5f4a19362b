package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/tableroapp/tablero/internal/models"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConflict marks a serialization conflict between concurrent
// movers. Callers retry moves that fail with this error; everything
// else is fatal for the attempt.
var ErrConflict = errors.New("serialization conflict")

// noBound disables one side of a shift range (orders are never negative).
const noBound = -1

// PositionRepo owns the ticket_positions table: the lightweight
// (ticket, column, order) rows that reordering contends on.
type PositionRepo struct {
	db *sql.DB
}

// MoveTicket relocates a ticket to (targetColumnID, targetOrder) in a
// single transaction, shifting neighbors so both the source and target
// columns keep contiguous 0..N-1 orders, and mirrors the result into
// the ticket's denormalized column/order fields. A target order past
// the end of the column is clamped to the last slot; the returned
// MoveResult carries the order actually written.
//
// This is one attempt: a serialization conflict is reported as
// ErrConflict and the caller decides whether to retry.
func (r *PositionRepo) MoveTicket(ctx context.Context, ticketID, targetColumnID, targetOrder int) (*models.MoveResult, error) {
	var result *models.MoveResult

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var projectID int
		err := tx.QueryRowContext(ctx,
			"SELECT project_id FROM columns WHERE id = ?", targetColumnID,
		).Scan(&projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrColumnNotFound
		}
		if err != nil {
			return err
		}

		// A ticket never crosses into another tenant's board.
		var ticketProjectID int
		err = tx.QueryRowContext(ctx,
			"SELECT project_id FROM tickets WHERE id = ?", ticketID,
		).Scan(&ticketProjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrTicketNotFound
		}
		if err != nil {
			return err
		}
		if ticketProjectID != projectID {
			return models.ErrCrossProjectMove
		}

		pos, err := getOrCreatePosition(ctx, tx, ticketID)
		if err != nil {
			return err
		}

		// Lock every position row in the affected columns, always in
		// ascending column-id order. The fixed global order is the
		// invariant that keeps two concurrent movers from forming a
		// circular wait.
		rowCounts := make(map[int]int, 2)
		lockSet := []int{pos.ColumnID}
		if targetColumnID != pos.ColumnID {
			lockSet = append(lockSet, targetColumnID)
			sort.Ints(lockSet)
		}
		for _, columnID := range lockSet {
			rows, err := lockColumnPositions(ctx, tx, columnID)
			if err != nil {
				return err
			}
			rowCounts[columnID] = len(rows)
		}

		// Re-read after locking: a concurrent transaction may have
		// moved this ticket between our first read and the locks.
		pos, err = getPosition(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if _, locked := rowCounts[pos.ColumnID]; !locked {
			// The ticket landed in a column outside the original lock
			// set; claim that column too before shifting it.
			rows, err := lockColumnPositions(ctx, tx, pos.ColumnID)
			if err != nil {
				return err
			}
			rowCounts[pos.ColumnID] = len(rows)
		}
		oldColumnID, oldOrder := pos.ColumnID, pos.Order

		// Clamp the target order to the end of the column so a
		// committed move can never leave a gap. Cross-column the ticket
		// appends after the target's N rows; same-column its own row is
		// already among the N counted.
		if oldColumnID != targetColumnID {
			if max := rowCounts[targetColumnID]; targetOrder > max {
				targetOrder = max
			}
		} else if max := rowCounts[oldColumnID] - 1; targetOrder > max {
			targetOrder = max
		}

		switch {
		case oldColumnID != targetColumnID:
			// Close the gap left behind, then open a slot at the target.
			if err := shiftPositions(ctx, tx, oldColumnID, oldOrder+1, noBound, -1, ticketID); err != nil {
				return err
			}
			if err := shiftPositions(ctx, tx, targetColumnID, targetOrder, noBound, +1, ticketID); err != nil {
				return err
			}
		case targetOrder < oldOrder:
			// Moving up: push the displaced window down one.
			if err := shiftPositions(ctx, tx, oldColumnID, targetOrder, oldOrder-1, +1, ticketID); err != nil {
				return err
			}
		case targetOrder > oldOrder:
			// Moving down: pull the displaced window up one.
			if err := shiftPositions(ctx, tx, oldColumnID, oldOrder+1, targetOrder, -1, ticketID); err != nil {
				return err
			}
		default:
			// Already in place; the writes below are idempotent.
		}

		if err := setPosition(ctx, tx, ticketID, targetColumnID, targetOrder); err != nil {
			return err
		}
		// Keep the ticket's own denormalized fields in step with its
		// position row. This statement never goes through the public
		// ticket update path, so no change hooks re-fire.
		if err := mirrorTicketPlacement(ctx, tx, ticketID, targetColumnID, targetOrder); err != nil {
			return err
		}

		// The affected set comes from the re-read placement, not the
		// pre-lock one, so a concurrent relocation cannot leave a
		// shifted column out of the notification.
		affected := []int{oldColumnID}
		if targetColumnID != oldColumnID {
			affected = append(affected, targetColumnID)
			sort.Ints(affected)
		}

		result = &models.MoveResult{
			TicketID:          ticketID,
			ProjectID:         projectID,
			OldColumnID:       oldColumnID,
			OldOrder:          oldOrder,
			ColumnID:          targetColumnID,
			Order:             targetOrder,
			AffectedColumnIDs: affected,
		}
		return nil
	})
	if err != nil {
		if isLockContention(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	return result, nil
}

// GetPosition returns the ticket's position row.
func (r *PositionRepo) GetPosition(ctx context.Context, ticketID int) (*models.Position, error) {
	pos := &models.Position{}
	err := r.db.QueryRowContext(ctx,
		`SELECT ticket_id, column_id, position, updated_at
		 FROM ticket_positions WHERE ticket_id = ?`,
		ticketID,
	).Scan(&pos.TicketID, &pos.ColumnID, &pos.Order, &pos.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// GetPositionsByColumn returns every position row in a column, ordered
// by position.
func (r *PositionRepo) GetPositionsByColumn(ctx context.Context, columnID int) ([]*models.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_id, column_id, position, updated_at
		 FROM ticket_positions
		 WHERE column_id = ?
		 ORDER BY position`,
		columnID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos := &models.Position{}
		if err := rows.Scan(&pos.TicketID, &pos.ColumnID, &pos.Order, &pos.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// getPosition reads a ticket's position row inside the transaction.
func getPosition(ctx context.Context, tx *sql.Tx, ticketID int) (*models.Position, error) {
	pos := &models.Position{}
	err := tx.QueryRowContext(ctx,
		`SELECT ticket_id, column_id, position, updated_at
		 FROM ticket_positions WHERE ticket_id = ?`,
		ticketID,
	).Scan(&pos.TicketID, &pos.ColumnID, &pos.Order, &pos.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// getOrCreatePosition returns the ticket's position row, creating it
// lazily on the first move: the row starts at order 0 in the ticket's
// current column.
func getOrCreatePosition(ctx context.Context, tx *sql.Tx, ticketID int) (*models.Position, error) {
	pos, err := getPosition(ctx, tx, ticketID)
	if err == nil {
		return pos, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var columnID int
	err = tx.QueryRowContext(ctx,
		"SELECT column_id FROM tickets WHERE id = ?", ticketID,
	).Scan(&columnID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO ticket_positions (ticket_id, column_id, position) VALUES (?, ?, 0)",
		ticketID, columnID,
	)
	if err != nil {
		return nil, err
	}

	return &models.Position{TicketID: ticketID, ColumnID: columnID, Order: 0}, nil
}

// lockColumnPositions claims every position row currently in columnID
// for the rest of the transaction, returned in ticket-id order for
// deterministic iteration. Stores with row-level locks take exclusive
// locks here (SELECT ... FOR UPDATE); SQLite instead escalates to its
// single writer lock when the first shift executes, and the busy
// timeout plus the caller's retry loop absorb the contention.
func lockColumnPositions(ctx context.Context, tx *sql.Tx, columnID int) ([]*models.Position, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT ticket_id, column_id, position
		 FROM ticket_positions
		 WHERE column_id = ?
		 ORDER BY ticket_id`,
		columnID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos := &models.Position{}
		if err := rows.Scan(&pos.TicketID, &pos.ColumnID, &pos.Order); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// shiftPositions applies position += delta to every row of columnID
// whose position lies within [minOrder, maxOrder] (noBound disables a
// bound), excluding the ticket being moved.
func shiftPositions(ctx context.Context, tx *sql.Tx, columnID, minOrder, maxOrder, delta, excludeTicketID int) error {
	query := `UPDATE ticket_positions
		 SET position = position + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE column_id = ? AND ticket_id <> ?`
	args := []any{delta, columnID, excludeTicketID}

	if minOrder != noBound {
		query += " AND position >= ?"
		args = append(args, minOrder)
	}
	if maxOrder != noBound {
		query += " AND position <= ?"
		args = append(args, maxOrder)
	}

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// setPosition writes the moved ticket's own position row.
func setPosition(ctx context.Context, tx *sql.Tx, ticketID, columnID, order int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ticket_positions (ticket_id, column_id, position, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(ticket_id) DO UPDATE SET
			column_id = excluded.column_id,
			position = excluded.position,
			updated_at = CURRENT_TIMESTAMP`,
		ticketID, columnID, order,
	)
	return err
}

// mirrorTicketPlacement keeps the ticket's denormalized column_id and
// column_order equal to its position row.
func mirrorTicketPlacement(ctx context.Context, tx *sql.Tx, ticketID, columnID, order int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tickets
		 SET column_id = ?, column_order = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		columnID, order, ticketID,
	)
	return err
}

// IsConflict reports whether err is the retryable serialization
// conflict produced when concurrent movers collide.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// isLockContention detects SQLite's busy/locked signals, the driver's
// equivalent of a serialization failure or deadlock abort.
func isLockContention(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
