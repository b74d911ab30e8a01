package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/processing"
	"orderflow/internal/ports"
)

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// ProcessingRepo implements the processor's idempotency ledger using pgx.
type ProcessingRepo struct{}

// NewProcessingRepo constructs a new ProcessingRepo.
func NewProcessingRepo() ports.ProcessingRepository {
	return &ProcessingRepo{}
}

// Insert creates a new record. The unique index on order_id is the last line
// of defense against two concurrent deliveries of the same event; a
// constraint violation comes back as apperr.ErrDuplicate.
func (r *ProcessingRepo) Insert(ctx context.Context, rec *processing.Record) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO processing_records (order_id, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		rec.OrderID,
		rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByOrderID looks up the record for an order.
func (r *ProcessingRepo) GetByOrderID(ctx context.Context, orderID string) (*processing.Record, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rec processing.Record
	err = tx.QueryRow(ctx, `
		SELECT id, order_id, status, error_message, processed_at, created_at, updated_at
		FROM processing_records
		WHERE order_id = $1
	`, orderID).Scan(
		&rec.ID, &rec.OrderID, &rec.Status, &rec.ErrorMessage,
		&rec.ProcessedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetProcessing moves a non-terminal record to 'processing'.
func (r *ProcessingRepo) SetProcessing(ctx context.Context, orderID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE processing_records
		SET status = 'processing', updated_at = now()
		WHERE order_id = $1 AND status IN ('pending', 'processing')
	`, orderID)
	return err
}

// FinishCAS records the terminal outcome. A record already terminal is left
// untouched; no transition ever leaves a terminal state.
func (r *ProcessingRepo) FinishCAS(ctx context.Context, orderID string, status processing.Status, errorMessage *string, processedAt time.Time) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var updated bool
	err = tx.QueryRow(ctx, `
		UPDATE processing_records
		SET status = $1, error_message = $2, processed_at = $3, updated_at = now()
		WHERE order_id = $4 AND status IN ('pending', 'processing')
		RETURNING true
	`, status, errorMessage, processedAt, orderID).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return updated, nil
}
