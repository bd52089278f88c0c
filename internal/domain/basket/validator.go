package basket

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartloom/storefront-api/internal/domain/product"
)

// itemToleranceRatio is the per-item price tolerance, relative to the catalog
// price. Relative so that acceptable float noise scales with the price.
var itemToleranceRatio = decimal.RequireFromString("0.01")

// totalTolerance is the absolute tolerance for the basket total, in currency
// units. Absolute so that penny-level rounding cannot accumulate past it.
var totalTolerance = decimal.RequireFromString("0.01")

// ReferenceError indicates a cart item identifier that could not be decoded.
type ReferenceError struct {
	ItemID string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid product id format: %s", e.ItemID)
}

// NotFoundError indicates a cart item whose reference resolved to no catalog
// product.
type NotFoundError struct {
	ItemID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ItemID)
}

// PriceMismatchError indicates a client-asserted price outside the per-item
// tolerance of the catalog price.
type PriceMismatchError struct {
	ItemID       string
	CatalogPrice decimal.Decimal
	ClientPrice  decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch for %s: expected %s, got %s",
		e.ItemID, e.CatalogPrice, e.ClientPrice)
}

// TotalMismatchError indicates a client-asserted total outside the absolute
// tolerance of the validated total.
type TotalMismatchError struct {
	Expected decimal.Decimal
	Provided decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total mismatch: expected %s, got %s", e.Expected, e.Provided)
}

// LineItem is an untrusted basket line as asserted by the client. Price is
// advisory only.
type LineItem struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
}

// ValidatedItem is a basket line whose identity, name, and price come from the
// catalog. Only the category survives from the client.
type ValidatedItem struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
}

// ValidatedBasket is the only basket form allowed to reach the payment
// gateway. Total is the exact sum of catalog prices.
type ValidatedBasket struct {
	Items []ValidatedItem
	Total decimal.Decimal
}

// Validator re-derives trusted prices for untrusted basket lines against the
// product catalog.
type Validator struct {
	catalog product.Repository
}

// NewValidator creates a Validator backed by the given catalog.
func NewValidator(catalog product.Repository) *Validator {
	return &Validator{catalog: catalog}
}

// ValidateBasket checks every line item in input order: decode its reference,
// resolve the catalog record, and compare the asserted price against the
// catalog price within the relative per-item tolerance. The first failing item
// aborts the whole basket; no partial result is ever returned.
func (v *Validator) ValidateBasket(ctx context.Context, items []LineItem) (*ValidatedBasket, error) {
	validated := make([]ValidatedItem, 0, len(items))
	total := decimal.Zero

	for _, item := range items {
		ref, err := ParseCartReference(item.ID)
		if err != nil {
			return nil, &ReferenceError{ItemID: item.ID}
		}

		p, err := v.resolve(ctx, ref)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &NotFoundError{ItemID: item.ID}
			}
			return nil, errors.Wrapf(err, "resolve %s", item.ID)
		}

		tolerance := p.Price.Mul(itemToleranceRatio)
		if p.Price.Sub(item.Price).Abs().GreaterThan(tolerance) {
			return nil, &PriceMismatchError{
				ItemID:       item.ID,
				CatalogPrice: p.Price,
				ClientPrice:  item.Price,
			}
		}

		validated = append(validated, ValidatedItem{
			ID:       p.ID,
			Name:     p.Name,
			Category: item.Category,
			Price:    p.Price,
		})
		total = total.Add(p.Price)
	}

	return &ValidatedBasket{Items: validated, Total: total}, nil
}

// CheckTotal compares the validated total against the client-asserted total
// within the absolute tolerance.
func CheckTotal(validated, client decimal.Decimal) error {
	if validated.Sub(client).Abs().GreaterThan(totalTolerance) {
		return &TotalMismatchError{Expected: validated, Provided: client}
	}
	return nil
}

func (v *Validator) resolve(ctx context.Context, ref CartReference) (*product.Product, error) {
	switch ref.Kind {
	case RefLegacyID:
		return v.catalog.GetByLegacyID(ctx, ref.LegacyID)
	case RefUUID:
		return v.catalog.GetByUUID(ctx, ref.UUID)
	default:
		return nil, errors.Errorf("unknown reference kind %d", ref.Kind)
	}
}
