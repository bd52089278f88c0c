// Package gateway implements the HTTP client for the external 3-D Secure
// payment provider.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cartloom/storefront-api/internal/domain/payment"
)

const initializePath = "/v1/threeds/initialize"

// Compile-time check ensuring Client satisfies the domain Gateway interface.
var _ payment.Gateway = (*Client)(nil)

// Config holds the provider credentials and endpoint.
type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
}

// Client talks to the payment provider over HTTPS. Requests are signed with
// HMAC-SHA256 over the body, per the provider's authentication scheme.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	secret  []byte
}

// NewClient creates a provider client. The underlying transport is traced.
func NewClient(cfg Config) *Client {
	return &Client{
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		secret:  []byte(cfg.SecretKey),
	}
}

// Initiate3DSecure posts a sanitized checkout payload to the provider and
// returns its verdict. Transport and decoding problems are errors; a
// provider-declared rejection is a non-error result with Success=false.
func (c *Client) Initiate3DSecure(ctx context.Context, req *payment.SanitizedRequest) (*payment.GatewayResult, error) {
	body := encodeInitiateRequest(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initializePath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.sign(body))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "post initialize")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.Errorf("provider returned %d", resp.StatusCode)
	}

	result, err := decodeInitiateResponse(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return result, nil
}

// sign builds the Authorization header: the API key and a hex HMAC-SHA256 of
// the request body under the secret key.
func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	return "STORE " + c.apiKey + ":" + hex.EncodeToString(mac.Sum(nil))
}

func encodeInitiateRequest(req *payment.SanitizedRequest) []byte {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("conversationId")
	e.Str(req.ConversationID)
	e.FieldStart("price")
	e.Str(req.Amount.String())
	e.FieldStart("paidPrice")
	e.Str(req.Amount.String())
	e.FieldStart("currency")
	e.Str(req.Currency)
	e.FieldStart("installments")
	e.Int(req.Installments)
	e.FieldStart("callbackUrl")
	e.Str(req.Caller.CallbackURL)
	e.FieldStart("clientIp")
	e.Str(req.Caller.IP)
	e.FieldStart("clientUserAgent")
	e.Str(req.Caller.UserAgent)

	e.FieldStart("buyer")
	e.ObjStart()
	e.FieldStart("id")
	e.Str(req.Buyer.ID)
	e.FieldStart("name")
	e.Str(req.Buyer.Name)
	e.FieldStart("surname")
	e.Str(req.Buyer.Surname)
	e.FieldStart("email")
	e.Str(req.Buyer.Email)
	e.FieldStart("identityNumber")
	e.Str(req.Buyer.IdentityNumber)
	e.FieldStart("phone")
	e.Str(req.Buyer.Phone)
	e.ObjEnd()

	e.FieldStart("billingAddress")
	encodeAddress(&e, req.BillingAddress)
	e.FieldStart("shippingAddress")
	encodeAddress(&e, req.ShippingAddress)

	e.FieldStart("paymentCard")
	e.ObjStart()
	e.FieldStart("cardHolderName")
	e.Str(req.Card.HolderName)
	e.FieldStart("cardNumber")
	e.Str(req.Card.Number)
	e.FieldStart("expireMonth")
	e.Str(req.Card.ExpireMonth)
	e.FieldStart("expireYear")
	e.Str(req.Card.ExpireYear)
	e.FieldStart("cvc")
	e.Str(req.Card.CVC)
	e.ObjEnd()

	e.FieldStart("basketItems")
	e.ArrStart()
	for _, item := range req.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(item.ID)
		e.FieldStart("name")
		e.Str(item.Name)
		e.FieldStart("category")
		e.Str(item.Category)
		e.FieldStart("price")
		e.Str(item.Price.String())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()
	return e.Bytes()
}

func encodeAddress(e *jx.Encoder, a payment.Address) {
	e.ObjStart()
	e.FieldStart("contactName")
	e.Str(a.ContactName)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("country")
	e.Str(a.Country)
	e.FieldStart("address")
	e.Str(a.Address)
	e.FieldStart("zipCode")
	e.Str(a.ZipCode)
	e.ObjEnd()
}

func decodeInitiateResponse(data []byte) (*payment.GatewayResult, error) {
	var (
		result payment.GatewayResult
		status string
	)

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			status, err = d.Str()
		case "paymentId":
			result.PaymentID, err = d.Str()
		case "conversationId":
			result.ConversationID, err = d.Str()
		case "htmlContent":
			result.HTMLContent, err = d.Str()
		case "threeDSHtmlContent":
			var raw string
			if raw, err = d.Str(); err == nil {
				result.ThreeDSHTMLContent = decodeMaybeBase64(raw)
			}
		case "errorCode":
			result.ErrorCode, err = d.Str()
		case "errorMessage":
			result.ErrorMessage, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}

	result.Success = status == "success"
	return &result, nil
}

// decodeMaybeBase64 returns the base64-decoded challenge markup when the
// provider base64-encodes it, or the raw value when it does not.
func decodeMaybeBase64(s string) string {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(decoded)
}
