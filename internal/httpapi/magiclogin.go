package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cartloom/storefront-api/internal/domain/magiclink"
)

type magicLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type magicLoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// LoginURL is only populated outside production.
	LoginURL string `json:"loginUrl,omitempty"`
}

// MagicLogin issues a passwordless login link to the given email address.
func (h *Handler) MagicLogin(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	var req magicLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondError(w, http.StatusBadRequest, "validation failed", fieldErrors(verrs)...)
			return
		}
		respondError(w, http.StatusBadRequest, "validation failed")
		return
	}

	loginURL, err := h.magic.Issue(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, magiclink.ErrBlockedDomain):
			respondError(w, http.StatusBadRequest, "validation failed", fieldError{
				Field:   "email",
				Message: "email domain not allowed",
			})
		case errors.Is(err, magiclink.ErrLinkGeneration):
			lg.Error("magic login link generation failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "could not create login link")
		case errors.Is(err, magiclink.ErrDelivery):
			lg.Error("magic login delivery failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "could not deliver login email")
		default:
			lg.Error("magic login failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	resp := magicLoginResponse{
		Success: true,
		Message: "Login link sent to your email address",
	}
	if h.revealLoginURL {
		resp.LoginURL = loginURL
	}
	respondJSON(w, http.StatusOK, resp)
}
