// Package token issues single-use, time-limited magic login tokens.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Record is a persisted login token. Only the HMAC of the token is stored, so
// a leaked table cannot be replayed without the pepper.
type Record struct {
	ID        string
	Email     string
	TokenHash string
	ExpiresAt time.Time
}

// Store persists issued tokens.
type Store interface {
	Insert(ctx context.Context, rec Record) error
}

// Issuer generates login links backed by peppered, persisted tokens.
type Issuer struct {
	store  Store
	pepper []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. ttl bounds how long an issued link stays valid.
func NewIssuer(store Store, pepper []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		store:  store,
		pepper: pepper,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateLoginLink mints a random token, stores its HMAC with an expiry, and
// returns the full login URL carrying the plaintext token.
func (i *Issuer) GenerateLoginLink(ctx context.Context, email, baseURL string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	token := hex.EncodeToString(raw)

	rec := Record{
		ID:        uuid.New().String(),
		Email:     email,
		TokenHash: i.Hash(token),
		ExpiresAt: i.now().Add(i.ttl),
	}
	if err := i.store.Insert(ctx, rec); err != nil {
		return "", errors.Wrap(err, "store token")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "parse base url %q", baseURL)
	}
	u = u.JoinPath("auth", "magic")
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Hash computes the HMAC-SHA256 of a plaintext token under the pepper,
// hex-encoded. The same derivation is used at issue and redeem time.
func (i *Issuer) Hash(token string) string {
	mac := hmac.New(sha256.New, i.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
