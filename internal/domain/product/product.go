package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a trusted catalog record. Prices on Product are the only prices
// allowed to reach the payment gateway.
type Product struct {
	// ID is the canonical UUID identifier.
	ID string
	// LegacyID is the pre-migration positive integer identifier. Zero when the
	// product was created after the UUID migration.
	LegacyID int64
	Name     string
	Category string
	Price    decimal.Decimal
}

// Repository defines read operations for the product catalog. Lookups are by
// identifier only, never by client-supplied attributes.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByUUID(ctx context.Context, id string) (*Product, error)
	GetByLegacyID(ctx context.Context, id int64) (*Product, error)
}
