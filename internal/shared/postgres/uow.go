package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orderflow/internal/ports"
)

// unexported key type so other packages cannot collide with the tx value.
type txCtxKey struct{}

// UnitOfWork runs functions inside a single pgx transaction. The tx travels
// through the context; repositories pull it out with MustTxFromContext.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork constructs a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx begins a transaction, runs fn with the tx in context, and commits.
// Any error from fn rolls the transaction back and is returned unchanged.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txCtx := context.WithValue(ctx, txCtxKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MustTxFromContext returns the transaction started by WithinTx. Repository
// methods require it; calling them outside a unit of work is a programming
// error surfaced as an error, not a panic.
func MustTxFromContext(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	if !ok || tx == nil {
		return nil, errors.New("postgres: no transaction in context; call within UnitOfWork.WithinTx")
	}
	return tx, nil
}
