//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestMagicLogin_Success(t *testing.T) {
	resp := doPost(t, "/api/magic-login", map[string]string{
		"email": "buyer@example.com",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[magicLoginResponse](t, resp)
	if !body.Success {
		t.Fatal("expected success")
	}
	// The stack runs with STORE_ENVIRONMENT=development, so the link is
	// echoed.
	if !strings.Contains(body.LoginURL, "token=") {
		t.Fatalf("expected login URL with token, got %q", body.LoginURL)
	}
}

func TestMagicLogin_InvalidEmail(t *testing.T) {
	resp := doPost(t, "/api/magic-login", map[string]string{
		"email": "not-an-email",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if len(body.Errors) == 0 || body.Errors[0].Field != "email" {
		t.Fatalf("expected email field error, got %+v", body.Errors)
	}
}

func TestMagicLogin_MissingEmail(t *testing.T) {
	resp := doPost(t, "/api/magic-login", map[string]string{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
