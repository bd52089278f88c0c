// Package magiclink issues passwordless login links by email.
package magiclink

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Sentinel errors distinguishing user-correctable rejections from
// infrastructure failures.
var (
	// ErrBlockedDomain is returned for email addresses on a disposable-domain
	// blocklist.
	ErrBlockedDomain = errors.New("email domain not allowed")
	// ErrLinkGeneration wraps failures of the link-issuing collaborator.
	ErrLinkGeneration = errors.New("login link generation failed")
	// ErrDelivery wraps failures of the email-sending collaborator.
	ErrDelivery = errors.New("login email delivery failed")
)

// LinkGenerator creates a time-limited login URL for the given email.
type LinkGenerator interface {
	GenerateLoginLink(ctx context.Context, email, baseURL string) (string, error)
}

// Sender delivers the magic login email. It acknowledges delivery only; a nil
// return means the message was handed off.
type Sender interface {
	SendMagicLoginEmail(ctx context.Context, email, loginURL string) error
}

// Service orchestrates magic login link issuance.
type Service struct {
	links     LinkGenerator
	sender    Sender
	blocklist *Blocklist
	baseURL   string
}

// NewService creates a magic link Service. blocklist may be nil, in which case
// no domain screening is performed.
func NewService(links LinkGenerator, sender Sender, blocklist *Blocklist, baseURL string) *Service {
	return &Service{
		links:     links,
		sender:    sender,
		blocklist: blocklist,
		baseURL:   baseURL,
	}
}

// Issue generates a login link for the given syntactically valid email and
// sends it. The returned URL is only safe to expose outside production.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	lg := zctx.From(ctx)

	if domain := emailDomain(email); s.blocklist != nil && s.blocklist.Blocked(domain) {
		lg.Warn("magic login rejected for blocklisted domain", zap.String("domain", domain))
		return "", ErrBlockedDomain
	}

	loginURL, err := s.links.GenerateLoginLink(ctx, email, s.baseURL)
	if err != nil {
		return "", errors.Wrap(ErrLinkGeneration, err.Error())
	}

	if err := s.sender.SendMagicLoginEmail(ctx, email, loginURL); err != nil {
		return "", errors.Wrap(ErrDelivery, err.Error())
	}

	return loginURL, nil
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
