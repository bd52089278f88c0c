package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloom/storefront-api/internal/domain/payment"
)

const (
	insertTransactionSQL = `INSERT INTO payment_transactions
		(id, payment_id, conversation_id, buyer_email, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertOrderSQL = `INSERT INTO orders
		(id, payment_id, buyer_email, items, total, status)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var (
	_ payment.TransactionStore = (*TransactionRepository)(nil)
	_ payment.OrderStore       = (*OrderRepository)(nil)
)

// TransactionRepository implements payment.TransactionStore backed by PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository returns a TransactionRepository that uses the given pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Insert persists a payment transaction record.
func (r *TransactionRepository) Insert(ctx context.Context, tx *payment.Transaction) error {
	_, err := r.pool.Exec(ctx, insertTransactionSQL,
		tx.ID, tx.PaymentID, tx.ConversationID, tx.BuyerEmail,
		tx.Amount, tx.Currency, string(tx.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting payment transaction %q: %w", tx.ID, err)
	}
	return nil
}

// OrderRepository implements payment.OrderStore backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// orderItemJSON is the JSONB shape of one order line.
type orderItemJSON struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
}

// Insert persists an order record. Line items are serialized into the JSONB
// items column.
func (r *OrderRepository) Insert(ctx context.Context, o *payment.Order) error {
	items := make([]orderItemJSON, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemJSON{
			ProductID: item.ID,
			Name:      item.Name,
			Category:  item.Category,
			Price:     item.Price,
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.PaymentID, o.BuyerEmail, itemsJSON, o.Total, string(o.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	return nil
}
