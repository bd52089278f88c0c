// Package httpapi exposes the storefront HTTP surface: magic login, payment
// initialization, and catalog reads.
package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cartloom/storefront-api/internal/domain/magiclink"
	"github.com/cartloom/storefront-api/internal/domain/payment"
	"github.com/cartloom/storefront-api/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// RevealLoginURL echoes generated login links in responses. Must stay off
	// in production; intended for local testing only.
	RevealLoginURL bool
}

// Handler carries the HTTP endpoints and their domain dependencies.
// A nil payments service means payment settings are not configured; the
// payment endpoint then answers 503.
type Handler struct {
	products       product.Repository
	payments       *payment.Service
	magic          *magiclink.Service
	validate       *validator.Validate
	revealLoginURL bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	payments *payment.Service,
	magic *magiclink.Service,
) *Handler {
	return &Handler{
		products:       products,
		payments:       payments,
		magic:          magic,
		validate:       newValidator(),
		revealLoginURL: cfg.RevealLoginURL,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/magic-login", h.MagicLogin)
	r.Post("/payment/initialize", h.InitializePayment)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)
	return r
}

// newValidator builds the request validator, reporting fields by their JSON
// names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldError is one schema violation in an error response.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string, errs ...fieldError) {
	respondJSON(w, status, errorResponse{Message: message, Errors: errs})
}

// fieldErrors converts validator violations into response entries.
func fieldErrors(verrs validator.ValidationErrors) []fieldError {
	out := make([]fieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = fieldError{Field: fieldPath(fe), Message: violationMessage(fe)}
	}
	return out
}

// fieldPath strips the root struct name from the violation namespace, leaving
// e.g. "buyer.identityNumber".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must contain at least " + fe.Param() + " items"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must contain at most " + fe.Param() + " items"
	case "numeric":
		return "must contain only digits"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// clientIP extracts the caller address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
