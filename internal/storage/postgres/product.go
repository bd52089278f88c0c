package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloom/storefront-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, COALESCE(legacy_id, 0), name, category, price
		FROM products ORDER BY legacy_id NULLS LAST, id`

	getProductByUUIDSQL = `SELECT id, COALESCE(legacy_id, 0), name, category, price
		FROM products WHERE id = $1`

	getProductByLegacyIDSQL = `SELECT id, COALESCE(legacy_id, 0), name, category, price
		FROM products WHERE legacy_id = $1`

	upsertProductSQL = `INSERT INTO products (id, legacy_id, name, category, price)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			legacy_id = EXCLUDED.legacy_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all catalog products, legacy items first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByUUID returns the product with the given canonical identifier.
// Values that are not valid UUIDs (cart tokens carry arbitrary candidate
// segments) are a plain miss, not a query error.
func (r *ProductRepository) GetByUUID(ctx context.Context, id string) (*product.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrNotFound
	}
	return r.getOne(ctx, getProductByUUIDSQL, id)
}

// GetByLegacyID returns the product with the given pre-migration identifier.
func (r *ProductRepository) GetByLegacyID(ctx context.Context, id int64) (*product.Product, error) {
	return r.getOne(ctx, getProductByLegacyIDSQL, id)
}

// Upsert inserts or refreshes a catalog product. A zero LegacyID is stored as
// NULL so the unique index ignores it.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.LegacyID, p.Name, p.Category, p.Price)
	if err != nil {
		return fmt.Errorf("upserting product %s: %w", p.ID, err)
	}
	return nil
}

func (r *ProductRepository) getOne(ctx context.Context, query string, arg any) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product %v: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %v: %w", arg, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.LegacyID, &p.Name, &p.Category, &price)
	p.Price = price
	return p, err
}
