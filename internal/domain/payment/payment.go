package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cartloom/storefront-api/internal/domain/basket"
)

// TransactionStatus enumerates the lifecycle states of a payment transaction.
type TransactionStatus string

const (
	// StatusThreeDSInitialized marks a transaction whose 3-D Secure challenge
	// has been handed to the buyer but not yet completed.
	StatusThreeDSInitialized TransactionStatus = "3ds_initialized"
	// StatusFailed marks a transaction the gateway rejected at initiation.
	StatusFailed TransactionStatus = "failed"
)

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

// OrderPendingPayment marks an order awaiting 3-D Secure completion.
const OrderPendingPayment OrderStatus = "pending_payment"

// Buyer identifies the purchasing customer.
type Buyer struct {
	ID             string
	Name           string
	Surname        string
	Email          string
	IdentityNumber string
	Phone          string
}

// Address is a billing or shipping address.
type Address struct {
	ContactName string
	City        string
	Country     string
	Address     string
	ZipCode     string
}

// Card holds the payment card details forwarded to the gateway. Never
// persisted.
type Card struct {
	HolderName  string
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVC         string
}

// Request is the untrusted checkout payload. Amount and Items are
// client-asserted and must pass basket validation before any of this reaches
// the gateway.
type Request struct {
	Buyer           Buyer
	BillingAddress  Address
	ShippingAddress Address
	Card            Card
	Installments    int
	Items           []basket.LineItem
	Amount          decimal.Decimal
	Currency        string
}

// CallerContext carries request-derived context attached to the gateway call.
type CallerContext struct {
	CallbackURL string
	IP          string
	UserAgent   string
}

// SanitizedRequest is a checkout payload whose price-bearing fields have been
// replaced with catalog-derived values. It is the only type the gateway client
// accepts, so an unvalidated Request cannot reach payment by construction.
type SanitizedRequest struct {
	ConversationID  string
	Buyer           Buyer
	BillingAddress  Address
	ShippingAddress Address
	Card            Card
	Installments    int
	Items           []basket.ValidatedItem
	Amount          decimal.Decimal
	Currency        string
	Caller          CallerContext
}

// Sanitize rebuilds the request around the validated basket: the amount
// becomes the validated total and the items become the catalog-derived lines.
func Sanitize(req Request, vb *basket.ValidatedBasket, conversationID string, caller CallerContext) *SanitizedRequest {
	return &SanitizedRequest{
		ConversationID:  conversationID,
		Buyer:           req.Buyer,
		BillingAddress:  req.BillingAddress,
		ShippingAddress: req.ShippingAddress,
		Card:            req.Card,
		Installments:    req.Installments,
		Items:           vb.Items,
		Amount:          vb.Total,
		Currency:        req.Currency,
		Caller:          caller,
	}
}

// GatewayResult is the gateway's answer to a 3-D Secure initiation attempt.
// Success reflects the gateway's own verdict; transport-level failures are
// reported as errors instead.
type GatewayResult struct {
	Success            bool
	PaymentID          string
	ConversationID     string
	HTMLContent        string
	ThreeDSHTMLContent string
	ErrorCode          string
	ErrorMessage       string
}

// Gateway starts 3-D Secure flows with the external payment provider.
type Gateway interface {
	Initiate3DSecure(ctx context.Context, req *SanitizedRequest) (*GatewayResult, error)
}

// Transaction is the persisted record of an initiation attempt.
type Transaction struct {
	ID             string
	PaymentID      string
	ConversationID string
	BuyerEmail     string
	Amount         decimal.Decimal
	Currency       string
	Status         TransactionStatus
	CreatedAt      time.Time
}

// Order is the persisted record of what was bought.
type Order struct {
	ID         string
	PaymentID  string
	BuyerEmail string
	Items      []basket.ValidatedItem
	Total      decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
}

// TransactionStore persists payment transactions.
type TransactionStore interface {
	Insert(ctx context.Context, tx *Transaction) error
}

// OrderStore persists orders.
type OrderStore interface {
	Insert(ctx context.Context, o *Order) error
}
