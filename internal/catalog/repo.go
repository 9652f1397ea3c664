package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Repository interface {
	Get(ctx context.Context, productID, variantKey string) (*Product, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// Get returns the product row for a variant. Variant-less products are
// stored under the empty variant key.
func (r *PGRepo) Get(ctx context.Context, productID, variantKey string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		p     Product
		price string
	)
	err := r.db.QueryRow(ctx, `
		SELECT product_id, variant_key, name, price::text
		FROM products WHERE product_id=$1 AND variant_key=$2
	`, productID, variantKey).Scan(&p.ID, &p.VariantKey, &p.Name, &price)
	if err != nil {
		return nil, ErrNotFound
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &p, nil
}
