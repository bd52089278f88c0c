package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloom/storefront-api/internal/domain/basket"
	"github.com/cartloom/storefront-api/internal/domain/payment"
)

func sanitizedRequest() *payment.SanitizedRequest {
	return &payment.SanitizedRequest{
		ConversationID: "conv-1",
		Buyer: payment.Buyer{
			ID:             "buyer-1",
			Name:           "Jane",
			Surname:        "Doe",
			Email:          "jane@example.com",
			IdentityNumber: "12345678901",
			Phone:          "+15551234567",
		},
		BillingAddress: payment.Address{
			ContactName: "Jane Doe",
			City:        "Springfield",
			Country:     "US",
			Address:     "12 Main St",
			ZipCode:     "12345",
		},
		ShippingAddress: payment.Address{
			ContactName: "Jane Doe",
			City:        "Springfield",
			Country:     "US",
			Address:     "12 Main St",
			ZipCode:     "12345",
		},
		Card: payment.Card{
			HolderName:  "Jane Doe",
			Number:      "4111111111111111",
			ExpireMonth: "12",
			ExpireYear:  "2030",
			CVC:         "123",
		},
		Installments: 1,
		Items: []basket.ValidatedItem{{
			ID:       "3fa85f64-5717-4562-b3fc-2c963f66afa6",
			Name:     "Waffle",
			Category: "Dessert",
			Price:    decimal.RequireFromString("6.50"),
		}},
		Amount:   decimal.RequireFromString("6.50"),
		Currency: "USD",
		Caller: payment.CallerContext{
			CallbackURL: "https://shop.example.com/payment/callback",
			IP:          "203.0.113.7",
			UserAgent:   "test-agent",
		},
	}
}

func TestInitiate3DSecure_Success(t *testing.T) {
	challenge := "<form>challenge</form>"

	var gotBody []byte
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/threeds/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":             "success",
			"paymentId":          "pay-123",
			"conversationId":     "conv-1",
			"threeDSHtmlContent": base64.StdEncoding.EncodeToString([]byte(challenge)),
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1", SecretKey: "secret-1"})

	result, err := c.Initiate3DSecure(context.Background(), sanitizedRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pay-123", result.PaymentID)
	assert.Equal(t, "conv-1", result.ConversationID)
	assert.Equal(t, challenge, result.ThreeDSHTMLContent)

	// Body is well-formed JSON carrying the sanitized values.
	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "6.50", payload["price"])
	assert.Equal(t, "conv-1", payload["conversationId"])
	assert.Equal(t, "203.0.113.7", payload["clientIp"])

	items, ok := payload["basketItems"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	// Authorization: "STORE <key>:<hmac(body)>".
	require.True(t, strings.HasPrefix(gotAuth, "STORE key-1:"))
	mac := hmac.New(sha256.New, []byte("secret-1"))
	mac.Write(gotBody)
	assert.Equal(t, "STORE key-1:"+hex.EncodeToString(mac.Sum(nil)), gotAuth)
}

func TestInitiate3DSecure_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"failure","errorCode":"5152","errorMessage":"card declined"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k", SecretKey: "s"})

	result, err := c.Initiate3DSecure(context.Background(), sanitizedRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "5152", result.ErrorCode)
	assert.Equal(t, "card declined", result.ErrorMessage)
}

func TestInitiate3DSecure_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k", SecretKey: "s"})

	_, err := c.Initiate3DSecure(context.Background(), sanitizedRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestInitiate3DSecure_TransportError(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", SecretKey: "s"})

	_, err := c.Initiate3DSecure(context.Background(), sanitizedRequest())
	require.Error(t, err)
}
