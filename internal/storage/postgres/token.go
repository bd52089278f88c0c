package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/storefront-api/internal/token"
)

const insertLoginTokenSQL = `INSERT INTO login_tokens (id, email, token_hash, expires_at)
	VALUES ($1, $2, $3, $4)`

var _ token.Store = (*LoginTokenRepository)(nil)

// LoginTokenRepository implements token.Store backed by PostgreSQL.
type LoginTokenRepository struct {
	pool *pgxpool.Pool
}

// NewLoginTokenRepository returns a LoginTokenRepository that uses the given pool.
func NewLoginTokenRepository(pool *pgxpool.Pool) *LoginTokenRepository {
	return &LoginTokenRepository{pool: pool}
}

// Insert persists an issued login token hash.
func (r *LoginTokenRepository) Insert(ctx context.Context, rec token.Record) error {
	_, err := r.pool.Exec(ctx, insertLoginTokenSQL,
		rec.ID, rec.Email, rec.TokenHash, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting login token for %q: %w", rec.Email, err)
	}
	return nil
}
