package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloom/storefront-api/internal/domain/basket"
	"github.com/cartloom/storefront-api/internal/domain/magiclink"
	"github.com/cartloom/storefront-api/internal/domain/payment"
	"github.com/cartloom/storefront-api/internal/domain/product"
)

// --- Mock implementations ---

type mockCatalog struct {
	byUUID   map[string]*product.Product
	byLegacy map[int64]*product.Product
	listErr  error
}

func (m *mockCatalog) List(_ context.Context) ([]product.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]product.Product, 0, len(m.byUUID))
	for _, p := range m.byUUID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockCatalog) GetByUUID(_ context.Context, id string) (*product.Product, error) {
	if p, ok := m.byUUID[id]; ok {
		return p, nil
	}
	return nil, product.ErrNotFound
}

func (m *mockCatalog) GetByLegacyID(_ context.Context, id int64) (*product.Product, error) {
	if p, ok := m.byLegacy[id]; ok {
		return p, nil
	}
	return nil, product.ErrNotFound
}

type mockGateway struct {
	result *payment.GatewayResult
	err    error
	calls  int
}

func (m *mockGateway) Initiate3DSecure(_ context.Context, _ *payment.SanitizedRequest) (*payment.GatewayResult, error) {
	m.calls++
	return m.result, m.err
}

type mockTxStore struct{ err error }

func (m *mockTxStore) Insert(_ context.Context, _ *payment.Transaction) error { return m.err }

type mockOrderStore struct{ err error }

func (m *mockOrderStore) Insert(_ context.Context, _ *payment.Order) error { return m.err }

type mockLinks struct {
	url string
	err error
}

func (m *mockLinks) GenerateLoginLink(_ context.Context, _, _ string) (string, error) {
	return m.url, m.err
}

type mockSender struct {
	err   error
	calls int
}

func (m *mockSender) SendMagicLoginEmail(_ context.Context, _, _ string) error {
	m.calls++
	return m.err
}

// --- Helpers ---

func newCatalog() *mockCatalog {
	waffle := &product.Product{
		ID:       "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		LegacyID: 1,
		Name:     "Waffle",
		Category: "Dessert",
		Price:    decimal.RequireFromString("100.00"),
	}
	return &mockCatalog{
		byUUID:   map[string]*product.Product{waffle.ID: waffle},
		byLegacy: map[int64]*product.Product{1: waffle},
	}
}

type testDeps struct {
	catalog *mockCatalog
	gw      *mockGateway
	links   *mockLinks
	sender  *mockSender
}

func newTestHandler(cfg Config, deps testDeps) http.Handler {
	if deps.catalog == nil {
		deps.catalog = newCatalog()
	}
	if deps.links == nil {
		deps.links = &mockLinks{url: "https://shop.example.com/auth/magic?token=abc"}
	}
	if deps.sender == nil {
		deps.sender = &mockSender{}
	}

	var payments *payment.Service
	if deps.gw != nil {
		payments = payment.NewService(
			basket.NewValidator(deps.catalog),
			deps.gw,
			&mockTxStore{},
			&mockOrderStore{},
			"https://shop.example.com/payment/callback",
		)
	}

	magic := magiclink.NewService(deps.links, deps.sender, nil, "https://shop.example.com")

	return NewHandler(cfg, deps.catalog, payments, magic).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func validPaymentBody(itemID, price, amount string) map[string]any {
	return map[string]any{
		"buyer": map[string]any{
			"id":             "buyer-1",
			"name":           "Jane",
			"surname":        "Doe",
			"email":          "jane@example.com",
			"identityNumber": "12345678901",
			"phone":          "+15551234567",
		},
		"billingAddress": map[string]any{
			"contactName": "Jane Doe",
			"city":        "Springfield",
			"country":     "US",
			"address":     "12 Main St",
			"zipCode":     "12345",
		},
		"shippingAddress": map[string]any{
			"contactName": "Jane Doe",
			"city":        "Springfield",
			"country":     "US",
			"address":     "12 Main St",
			"zipCode":     "12345",
		},
		"card": map[string]any{
			"holderName":  "Jane Doe",
			"number":      "4111111111111111",
			"expireMonth": "12",
			"expireYear":  "2030",
			"cvc":         "123",
		},
		"installments": 1,
		"basketItems": []map[string]any{{
			"id":       itemID,
			"name":     "Waffle",
			"category": "Dessert",
			"price":    price,
		}},
		"amount": amount,
	}
}

// --- Magic login ---

func TestMagicLogin_InvalidEmail(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{})

	rec := doJSON(t, h, http.MethodPost, "/magic-login", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[errorResponse](t, rec)
	assert.False(t, body.Success)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "email", body.Errors[0].Field)
}

func TestMagicLogin_MissingEmail(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{})

	rec := doJSON(t, h, http.MethodPost, "/magic-login", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMagicLogin_InvalidJSON(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{})

	req := httptest.NewRequest(http.MethodPost, "/magic-login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMagicLogin_DeliveryFailure(t *testing.T) {
	h := newTestHandler(Config{RevealLoginURL: true}, testDeps{
		sender: &mockSender{err: errors.New("smtp down")},
	})

	rec := doJSON(t, h, http.MethodPost, "/magic-login", map[string]string{"email": "jane@example.com"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody[magicLoginResponse](t, rec)
	assert.Empty(t, body.LoginURL, "no link may leak on failure")
	assert.NotContains(t, rec.Body.String(), "token=abc")
}

func TestMagicLogin_LinkGenerationFailure(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{
		links: &mockLinks{err: errors.New("token store down")},
	})

	rec := doJSON(t, h, http.MethodPost, "/magic-login", map[string]string{"email": "jane@example.com"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMagicLogin_Success(t *testing.T) {
	t.Run("production hides the link", func(t *testing.T) {
		h := newTestHandler(Config{RevealLoginURL: false}, testDeps{})

		rec := doJSON(t, h, http.MethodPost, "/magic-login", map[string]string{"email": "jane@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[magicLoginResponse](t, rec)
		assert.True(t, body.Success)
		assert.NotEmpty(t, body.Message)
		assert.Empty(t, body.LoginURL)
	})

	t.Run("development echoes the link", func(t *testing.T) {
		h := newTestHandler(Config{RevealLoginURL: true}, testDeps{})

		rec := doJSON(t, h, http.MethodPost, "/magic-login", map[string]string{"email": "jane@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[magicLoginResponse](t, rec)
		assert.Equal(t, "https://shop.example.com/auth/magic?token=abc", body.LoginURL)
	})
}

// --- Payment initialization ---

func TestInitializePayment_SettingsUnavailable(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{gw: nil})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("1", "100.00", "100.00"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInitializePayment_SchemaViolations(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{Success: true}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	body := validPaymentBody("1", "100.00", "100.00")
	body["installments"] = 13
	body["buyer"].(map[string]any)["identityNumber"] = "123"
	body["card"].(map[string]any)["number"] = "411111111111111" // 15 digits

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	fields := make([]string, len(resp.Errors))
	for i, fe := range resp.Errors {
		fields[i] = fe.Field
	}
	assert.Contains(t, fields, "installments")
	assert.Contains(t, fields, "buyer.identityNumber")
	assert.Contains(t, fields, "card.number")
	assert.Zero(t, gw.calls, "schema violations must not reach the gateway")
}

func TestInitializePayment_EmptyBasket(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{Success: true}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	body := validPaymentBody("1", "100.00", "100.00")
	body["basketItems"] = []map[string]any{}

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitializePayment_PriceMismatch(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{Success: true}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("1", "9999.00", "9999.00"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "price mismatch")
	assert.Zero(t, gw.calls)
}

func TestInitializePayment_TotalMismatch(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{Success: true}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("1", "100.00", "100.02"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "total mismatch")
}

func TestInitializePayment_UnknownProduct(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{Success: true}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("999", "10.00", "10.00"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "not found")
}

func TestInitializePayment_GatewayRejection(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{
		Success:      false,
		ErrorCode:    "5152",
		ErrorMessage: "card declined",
	}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("1", "100.00", "100.00"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[paymentResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "5152", resp.ErrorCode)
	assert.Equal(t, "card declined", resp.Message)
}

func TestInitializePayment_GatewayTransportError(t *testing.T) {
	gw := &mockGateway{err: errors.New("connection refused")}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("1", "100.00", "100.00"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "internal error", resp.Message)
}

func TestInitializePayment_Success(t *testing.T) {
	gw := &mockGateway{result: &payment.GatewayResult{
		Success:            true,
		PaymentID:          "pay-123",
		ConversationID:     "conv-1",
		ThreeDSHTMLContent: "<form>challenge</form>",
	}}
	h := newTestHandler(Config{}, testDeps{gw: gw})

	rec := doJSON(t, h, http.MethodPost, "/payment/initialize", validPaymentBody("cart_1_a_1_1", "100.00", "100.00"))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[paymentResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "pay-123", resp.PaymentID)
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, "<form>challenge</form>", resp.ThreeDSHTMLContent)
}

// --- Products ---

func TestListProducts(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{})

	rec := doJSON(t, h, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	products := decodeBody[[]productResponse](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "Waffle", products[0].Name)
}

func TestGetProduct(t *testing.T) {
	h := newTestHandler(Config{}, testDeps{})

	t.Run("by legacy id", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/products/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		p := decodeBody[productResponse](t, rec)
		assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", p.ID)
	})

	t.Run("by uuid", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/products/3fa85f64-5717-4562-b3fc-2c963f66afa6", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/products/99", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("garbage id", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/products/not-an-id", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
