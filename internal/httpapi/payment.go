package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cartloom/storefront-api/internal/domain/basket"
	"github.com/cartloom/storefront-api/internal/domain/payment"
)

type buyerDTO struct {
	ID             string `json:"id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Surname        string `json:"surname" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	IdentityNumber string `json:"identityNumber" validate:"required,len=11"`
	Phone          string `json:"phone" validate:"required"`
}

type addressDTO struct {
	ContactName string `json:"contactName" validate:"required"`
	City        string `json:"city" validate:"required"`
	Country     string `json:"country" validate:"required"`
	Address     string `json:"address" validate:"required"`
	ZipCode     string `json:"zipCode"`
}

type cardDTO struct {
	HolderName  string `json:"holderName" validate:"required"`
	Number      string `json:"number" validate:"required,numeric,min=16,max=19"`
	ExpireMonth string `json:"expireMonth" validate:"required,numeric,min=1,max=2"`
	ExpireYear  string `json:"expireYear" validate:"required,numeric,len=4"`
	CVC         string `json:"cvc" validate:"required,numeric,min=3,max=4"`
}

type basketItemDTO struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

type paymentRequestDTO struct {
	Buyer           buyerDTO        `json:"buyer"`
	BillingAddress  addressDTO      `json:"billingAddress"`
	ShippingAddress addressDTO      `json:"shippingAddress"`
	Card            cardDTO         `json:"card"`
	Installments    int             `json:"installments" validate:"gte=1,lte=12"`
	BasketItems     []basketItemDTO `json:"basketItems" validate:"required,min=1,dive"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type paymentResponse struct {
	Success            bool   `json:"success"`
	TransactionID      string `json:"transactionId,omitempty"`
	PaymentID          string `json:"paymentId,omitempty"`
	ConversationID     string `json:"conversationId,omitempty"`
	HTMLContent        string `json:"htmlContent,omitempty"`
	ThreeDSHTMLContent string `json:"threeDSHtmlContent,omitempty"`
	ErrorCode          string `json:"errorCode,omitempty"`
	Message            string `json:"message,omitempty"`
}

// InitializePayment revalidates the basket server-side and starts a 3-D
// Secure payment flow for requests that pass.
func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lg := zctx.From(r.Context())
	defer func() {
		lg.Info("payment initialization handled", zap.Duration("duration", time.Since(start)))
	}()

	if h.payments == nil {
		respondError(w, http.StatusServiceUnavailable, "payment processing is temporarily unavailable")
		return
	}

	var req paymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if errs := h.validatePaymentRequest(req); len(errs) > 0 {
		respondError(w, http.StatusBadRequest, "validation failed", errs...)
		return
	}

	result, err := h.payments.Initiate(r.Context(), toDomainRequest(req), clientIP(r), r.UserAgent())
	if err != nil {
		h.respondPaymentError(w, r, err)
		return
	}

	if !result.Gateway.Success {
		respondJSON(w, http.StatusBadRequest, paymentResponse{
			ErrorCode: result.Gateway.ErrorCode,
			Message:   result.Gateway.ErrorMessage,
		})
		return
	}

	respondJSON(w, http.StatusOK, paymentResponse{
		Success:            true,
		TransactionID:      result.TransactionID,
		PaymentID:          result.Gateway.PaymentID,
		ConversationID:     result.Gateway.ConversationID,
		HTMLContent:        result.Gateway.HTMLContent,
		ThreeDSHTMLContent: result.Gateway.ThreeDSHTMLContent,
	})
}

// validatePaymentRequest runs tag-based schema validation plus the decimal
// checks the validator cannot express.
func (h *Handler) validatePaymentRequest(req paymentRequestDTO) []fieldError {
	var out []fieldError

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out = fieldErrors(verrs)
		} else {
			out = append(out, fieldError{Field: "", Message: "invalid payload"})
		}
	}

	if !req.Amount.IsPositive() {
		out = append(out, fieldError{Field: "amount", Message: "must be greater than zero"})
	}
	for i, item := range req.BasketItems {
		if !item.Price.IsPositive() {
			out = append(out, fieldError{
				Field:   "basketItems[" + strconv.Itoa(i) + "].price",
				Message: "must be greater than zero",
			})
		}
	}

	return out
}

// respondPaymentError maps domain errors onto the response taxonomy. Basket
// integrity violations are treated as potential tampering and logged loudly.
func (h *Handler) respondPaymentError(w http.ResponseWriter, r *http.Request, err error) {
	lg := zctx.From(r.Context())

	var (
		refErr *basket.ReferenceError
		nfErr  *basket.NotFoundError
		pmErr  *basket.PriceMismatchError
		tmErr  *basket.TotalMismatchError
	)
	switch {
	case errors.As(err, &refErr), errors.As(err, &nfErr):
		lg.Warn("basket validation rejected request",
			zap.String("client_ip", clientIP(r)),
			zap.Error(err),
		)
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &pmErr):
		lg.Warn("basket price tampering suspected",
			zap.String("client_ip", clientIP(r)),
			zap.String("item_id", pmErr.ItemID),
			zap.String("catalog_price", pmErr.CatalogPrice.String()),
			zap.String("client_price", pmErr.ClientPrice.String()),
		)
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tmErr):
		lg.Warn("basket total tampering suspected",
			zap.String("client_ip", clientIP(r)),
			zap.String("expected", tmErr.Expected.String()),
			zap.String("provided", tmErr.Provided.String()),
		)
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		lg.Error("payment initiation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func toDomainRequest(req paymentRequestDTO) payment.Request {
	items := make([]basket.LineItem, len(req.BasketItems))
	for i, item := range req.BasketItems {
		items[i] = basket.LineItem{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	return payment.Request{
		Buyer: payment.Buyer{
			ID:             req.Buyer.ID,
			Name:           req.Buyer.Name,
			Surname:        req.Buyer.Surname,
			Email:          req.Buyer.Email,
			IdentityNumber: req.Buyer.IdentityNumber,
			Phone:          req.Buyer.Phone,
		},
		BillingAddress:  toDomainAddress(req.BillingAddress),
		ShippingAddress: toDomainAddress(req.ShippingAddress),
		Card: payment.Card{
			HolderName:  req.Card.HolderName,
			Number:      req.Card.Number,
			ExpireMonth: req.Card.ExpireMonth,
			ExpireYear:  req.Card.ExpireYear,
			CVC:         req.Card.CVC,
		},
		Installments: req.Installments,
		Items:        items,
		Amount:       req.Amount,
		Currency:     currency,
	}
}

func toDomainAddress(a addressDTO) payment.Address {
	return payment.Address{
		ContactName: a.ContactName,
		City:        a.City,
		Country:     a.Country,
		Address:     a.Address,
		ZipCode:     a.ZipCode,
	}
}
