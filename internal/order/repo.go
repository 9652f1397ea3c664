package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, steps []TrackingStep) error
	Confirm(ctx context.Context, id string, eta time.Time, steps []TrackingStep) error
	SetPaymentResult(ctx context.Context, id, paymentID, status string) error
	SetFeedback(ctx context.Context, id, status string, closedAt *time.Time) error
	Purge(ctx context.Context, id string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders (
      id, human_id, buyer_id, total, payment_method, payment_status,
      payment_intent_id, payment_id, order_status,
      street, city, state, zip, phone, whatsapp,
      feedback_status, created_at, updated_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)
  `, o.ID, o.HumanID, o.BuyerID, o.Total.String(), o.PaymentMethod, o.PaymentStatus,
		o.PaymentIntentID, o.PaymentID, o.Status,
		o.Address.Street, o.Address.City, o.Address.State, o.Address.Zip, o.Address.Phone, o.Address.WhatsApp,
		o.FeedbackStatus, o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_items (order_id, position, product_id, variant_key, name, quantity, unit_price)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, o.ID, i, it.ProductID, it.VariantKey, it.Name, it.Quantity, it.UnitPrice.String()); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for i, st := range o.Tracking {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_tracking (order_id, position, status, ts, completed)
      VALUES ($1,$2,$3,$4,$5)
    `, o.ID, i, st.Status, st.Timestamp, st.Completed); err != nil {
			return fmt.Errorf("insert tracking step: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		o        Order
		total    string
		intentID *string
		payID    *string
	)
	err := r.db.QueryRow(ctx, `
    SELECT id, human_id, buyer_id, total::text, payment_method, payment_status,
           payment_intent_id, payment_id, order_status,
           street, city, state, zip, phone, whatsapp,
           estimated_delivery, feedback_status, closed_at, created_at, updated_at
    FROM orders WHERE id=$1
  `, id).Scan(&o.ID, &o.HumanID, &o.BuyerID, &total, &o.PaymentMethod, &o.PaymentStatus,
		&intentID, &payID, &o.Status,
		&o.Address.Street, &o.Address.City, &o.Address.State, &o.Address.Zip, &o.Address.Phone, &o.Address.WhatsApp,
		&o.EstimatedDelivery, &o.FeedbackStatus, &o.ClosedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if intentID != nil {
		o.PaymentIntentID = *intentID
	}
	if payID != nil {
		o.PaymentID = *payID
	}

	if o.Items, err = r.getItems(ctx, id); err != nil {
		return nil, err
	}
	if o.Tracking, err = r.getTracking(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) getItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
    SELECT product_id, variant_key, name, quantity, unit_price::text
    FROM order_items WHERE order_id=$1 ORDER BY position
  `, orderID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.VariantKey, &it.Name, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) getTracking(ctx context.Context, orderID string) ([]TrackingStep, error) {
	rows, err := r.db.Query(ctx, `
    SELECT status, ts, completed
    FROM order_tracking WHERE order_id=$1 ORDER BY position
  `, orderID)
	if err != nil {
		return nil, fmt.Errorf("get tracking: %w", err)
	}
	defer rows.Close()

	var steps []TrackingStep
	for rows.Next() {
		var st TrackingStep
		if err := rows.Scan(&st.Status, &st.Timestamp, &st.Completed); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func (r *PGRepo) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error) {
	return r.list(ctx, `WHERE buyer_id=$3`, limit, offset, buyerID)
}

func (r *PGRepo) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	return r.list(ctx, ``, limit, offset)
}

func (r *PGRepo) list(ctx context.Context, where string, limit, offset int, extra ...any) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	args := append([]any{limit, offset}, extra...)
	rows, err := r.db.Query(ctx, `
    SELECT id, human_id, buyer_id, total::text, payment_method, payment_status, order_status,
           feedback_status, created_at, updated_at
    FROM orders `+where+`
    ORDER BY created_at DESC LIMIT $1 OFFSET $2
  `, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			o     Order
			total string
		)
		if err := rows.Scan(&o.ID, &o.HumanID, &o.BuyerID, &total, &o.PaymentMethod, &o.PaymentStatus,
			&o.Status, &o.FeedbackStatus, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus persists a legal transition. The update is conditional on
// the status the caller saw, so two admins racing the same order cannot
// both apply; the loser gets ErrIllegalTransition.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, from, to Status, steps []TrackingStep) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE orders SET order_status=$3, updated_at=NOW()
    WHERE id=$1 AND order_status=$2
  `, id, from, to)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}

	if err := r.appendSteps(ctx, tx, id, steps); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Confirm moves Ordered to Processing and records the delivery estimate.
func (r *PGRepo) Confirm(ctx context.Context, id string, eta time.Time, steps []TrackingStep) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE orders SET order_status=$2, estimated_delivery=$3, updated_at=NOW()
    WHERE id=$1 AND order_status=$4
  `, id, StatusProcessing, eta, StatusOrdered)
	if err != nil {
		return fmt.Errorf("confirm order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}

	if err := r.appendSteps(ctx, tx, id, steps); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) appendSteps(ctx context.Context, tx pgx.Tx, orderID string, steps []TrackingStep) error {
	if _, err := tx.Exec(ctx, `
    UPDATE order_tracking SET completed=TRUE WHERE order_id=$1 AND NOT completed
  `, orderID); err != nil {
		return fmt.Errorf("complete pending steps: %w", err)
	}
	for _, st := range steps {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_tracking (order_id, position, status, ts, completed)
      VALUES ($1, (SELECT COALESCE(MAX(position),-1)+1 FROM order_tracking WHERE order_id=$1), $2, $3, $4)
    `, orderID, st.Status, st.Timestamp, st.Completed); err != nil {
			return fmt.Errorf("append tracking step: %w", err)
		}
	}
	return nil
}

func (r *PGRepo) staleOrMissing(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrIllegalTransition
}

func (r *PGRepo) SetPaymentResult(ctx context.Context, id, paymentID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders SET payment_status=$2, payment_id=$3, updated_at=NOW()
    WHERE id=$1
  `, id, status, paymentID)
	if err != nil {
		return fmt.Errorf("set payment result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetFeedback(ctx context.Context, id, status string, closedAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders SET feedback_status=$2, closed_at=COALESCE($3, closed_at), updated_at=NOW()
    WHERE id=$1 AND order_status=$4
  `, id, status, closedAt, StatusDelivered)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

// Purge is the irreversible administrative delete. Items and tracking rows
// go with the order via ON DELETE CASCADE.
func (r *PGRepo) Purge(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("purge order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
