// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/cartloom/storefront-api/internal/domain/magiclink"
)

// Compile-time check ensuring SMTP satisfies the magiclink Sender interface.
var _ magiclink.Sender = (*SMTP)(nil)

// Config holds SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTP sends mail through a single relay. One attempt per message; the caller
// owns retry policy (there is none for magic login).
type SMTP struct {
	cfg Config
	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates an SMTP mailer.
func New(cfg Config) *SMTP {
	return &SMTP{cfg: cfg, send: smtp.SendMail}
}

// SendMagicLoginEmail delivers the login link to the given address.
func (m *SMTP) SendMagicLoginEmail(ctx context.Context, email, loginURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, email, "Your login link", fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Use the link below to sign in. It expires shortly and works once.\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not request this, you can ignore this email.\r\n", loginURL))

	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{email}, msg); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
