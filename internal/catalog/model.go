package catalog

import "github.com/shopspring/decimal"

// Product is the live catalog row fulfillment snapshots from. Catalog CRUD
// is owned by the storefront admin surface and is not part of this service.
type Product struct {
	ID         string          `json:"id"`
	VariantKey string          `json:"variant_key"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
}
