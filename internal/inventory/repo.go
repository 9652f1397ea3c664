package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("inventory record not found")

// Ledger prevents overselling. Reserve must stay a single conditional
// UPDATE: concurrent checkouts against the last unit are expected, and a
// read-then-write here is a correctness bug, not a style choice.
type Ledger interface {
	Reserve(ctx context.Context, productID, variantKey string, qty int) (bool, error)
	Release(ctx context.Context, productID, variantKey string, qty int) error
}

type PGLedger struct{ db *pgxpool.Pool }

func NewPGLedger(db *pgxpool.Pool) *PGLedger { return &PGLedger{db: db} }

// Reserve atomically decrements available stock. It returns false without
// mutating state when fewer than qty units remain.
func (l *PGLedger) Reserve(ctx context.Context, productID, variantKey string, qty int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := l.db.Exec(ctx, `
		UPDATE inventory
		SET available = available - $3, updated_at = NOW()
		WHERE product_id = $1 AND variant_key = $2 AND available >= $3
	`, productID, variantKey, qty)
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish "sold out" from "no such record".
	var exists bool
	if err := l.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id = $1 AND variant_key = $2)
	`, productID, variantKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("check inventory record: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// Release is the compensating increment for a reservation that must be
// undone (line failure during placement, order cancellation).
func (l *PGLedger) Release(ctx context.Context, productID, variantKey string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := l.db.Exec(ctx, `
		UPDATE inventory
		SET available = available + $3, updated_at = NOW()
		WHERE product_id = $1 AND variant_key = $2
	`, productID, variantKey, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
