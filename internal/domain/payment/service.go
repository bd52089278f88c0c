package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartloom/storefront-api/internal/domain/basket"
)

// Service orchestrates payment initiation: basket integrity validation,
// sanitization, the gateway call, and persistence of the outcome.
type Service struct {
	validator    *basket.Validator
	gateway      Gateway
	transactions TransactionStore
	orders       OrderStore
	callbackURL  string
}

// NewService creates a payment Service with the required collaborators.
func NewService(
	validator *basket.Validator,
	gateway Gateway,
	transactions TransactionStore,
	orders OrderStore,
	callbackURL string,
) *Service {
	return &Service{
		validator:    validator,
		gateway:      gateway,
		transactions: transactions,
		orders:       orders,
		callbackURL:  callbackURL,
	}
}

// Result is the outcome of an initiation attempt that reached the gateway.
type Result struct {
	TransactionID string
	Gateway       GatewayResult
}

// Initiate revalidates the basket against the catalog, rejects tampered
// requests, and starts a 3-D Secure flow for the rest.
//
// Basket and total failures come back as the basket package's typed errors so
// callers can distinguish integrity violations from infrastructure failures.
// A gateway-declared rejection is a non-error Result with Success=false.
func (s *Service) Initiate(ctx context.Context, req Request, ip, userAgent string) (*Result, error) {
	lg := zctx.From(ctx)

	vb, err := s.validator.ValidateBasket(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if err := basket.CheckTotal(vb.Total, req.Amount); err != nil {
		return nil, err
	}

	conversationID := uuid.New().String()
	sanitized := Sanitize(req, vb, conversationID, CallerContext{
		CallbackURL: s.callbackURL,
		IP:          ip,
		UserAgent:   userAgent,
	})

	gw, err := s.gateway.Initiate3DSecure(ctx, sanitized)
	if err != nil {
		return nil, errors.Wrap(err, "initiate 3ds payment")
	}

	result := &Result{Gateway: *gw}
	if !gw.Success {
		lg.Info("gateway rejected payment initiation",
			zap.String("conversation_id", conversationID),
			zap.String("error_code", gw.ErrorCode),
		)
		return result, nil
	}

	// The HTTP outcome is fixed by the gateway verdict above. The two inserts
	// below are independent and non-atomic: a failure in either (or a crash
	// between them) leaves a partial record, which is logged and tolerated.
	result.TransactionID = s.persistOutcome(ctx, sanitized, gw)

	return result, nil
}

func (s *Service) persistOutcome(ctx context.Context, req *SanitizedRequest, gw *GatewayResult) string {
	lg := zctx.From(ctx)

	tx := &Transaction{
		ID:             uuid.New().String(),
		PaymentID:      gw.PaymentID,
		ConversationID: req.ConversationID,
		BuyerEmail:     req.Buyer.Email,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         StatusThreeDSInitialized,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		lg.Error("persist payment transaction",
			zap.String("payment_id", gw.PaymentID),
			zap.Error(err),
		)
	}

	o := &Order{
		ID:         uuid.New().String(),
		PaymentID:  gw.PaymentID,
		BuyerEmail: req.Buyer.Email,
		Items:      req.Items,
		Total:      req.Amount,
		Status:     OrderPendingPayment,
	}
	if err := s.orders.Insert(ctx, o); err != nil {
		lg.Error("persist order",
			zap.String("payment_id", gw.PaymentID),
			zap.Error(err),
		)
	}

	return tx.ID
}
