package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/artistlab-studio/campus-registration/account"
	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/artistlab-studio/campus-registration/registration"
	"github.com/artistlab-studio/campus-registration/sessions"
)

type createRegistrationRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=6"`
	City      string `json:"city" validate:"required"`
	Session   string `json:"session" validate:"required"`
}

type createRegistrationResponse struct {
	RegistrationID string `json:"registrationId"`
	CheckoutURL    string `json:"checkoutUrl"`
}

// handleCreateRegistration inserts a pending registration, establishes the
// payer's account, and hands back a hosted-checkout redirect URL. A pending
// row orphaned by a later checkout failure is left in place; the reconciler's
// most-recent-pending selection tolerates it.
func (a *API) handleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	var req createRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid body for registration", slog.String("error", err.Error()))
		a.writeError(w, http.StatusBadRequest, InvalidBody, genericSubmitErrorMessage)
		return
	}

	if err := a.validate.Struct(req); err != nil {
		logger.Warn("Registration failed validation", slog.String("error", err.Error()))
		a.writeError(w, http.StatusBadRequest, InputValidationError, genericSubmitErrorMessage)
		return
	}

	reg, err := registration.NewRegistration(req.FirstName, req.LastName, req.Email, req.Phone, req.City, sessions.ID(req.Session))
	if err != nil {
		logger.Warn("Registration for unknown session", slog.String("session", req.Session))
		a.writeError(w, http.StatusBadRequest, InputValidationError, genericSubmitErrorMessage)
		return
	}

	if err := a.db.CreateRegistration(ctx, reg); err != nil {
		logger.Error("Failed to create registration", slog.String("error", err.Error()))
		a.writeError(w, http.StatusInternalServerError, InternalError, genericSubmitErrorMessage)
		return
	}

	if _, err := a.db.EnsureAccount(ctx, reg.Email); err != nil {
		var accountErr *account.Error
		if errors.As(err, &accountErr) && accountErr.Reason == account.REASON_ACCOUNT_ALREADY_EXISTS {
			logger.Warn("Account already exists for registration", slog.String("email", reg.Email))
			a.writeError(w, http.StatusConflict, AlreadyExists, accountExistsMessage)
			return
		}

		logger.Error("Failed to ensure account", slog.String("error", err.Error()))
		a.writeError(w, http.StatusInternalServerError, InternalError, genericSubmitErrorMessage)
		return
	}

	// The registration id rides along in the success URL and the session's
	// client reference, so the post-payment page needs no client-side state.
	checkout, err := a.payments.CreateCheckout(ctx, payments.CheckoutParams{
		PriceID:       a.cfg.PriceID,
		Mode:          payments.ModeOneTime,
		SuccessURL:    fmt.Sprintf("%s?registration_id=%s", a.cfg.SuccessURL, reg.ID),
		CancelURL:     a.cfg.CancelURL,
		CustomerEmail: reg.Email,
		ReferenceID:   reg.ID.String(),
	})
	if err != nil {
		// The pending row stays behind; cleanup is out of band.
		logger.Error("Failed to create checkout session",
			slog.String("error", err.Error()),
			slog.String("registration-id", reg.ID.String()),
		)
		a.writeError(w, http.StatusInternalServerError, InternalError, genericSubmitErrorMessage)
		return
	}

	a.writeJSON(w, http.StatusOK, createRegistrationResponse{
		RegistrationID: reg.ID.String(),
		CheckoutURL:    checkout.URL,
	})
}
