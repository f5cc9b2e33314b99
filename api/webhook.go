package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/artistlab-studio/campus-registration/registration"
)

const webhookBodyLimit = 65536

type webhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"eventType,omitempty"`
}

// handleStripeWebhook verifies, matches, and applies a checkout outcome.
// Signature verification is the only authentication on this endpoint, and it
// runs over the raw body before anything is parsed.
func (a *API) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read stripe webhook body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		logger.Warn("Stripe webhook without signature header")
		a.writeError(w, http.StatusBadRequest, InputValidationError, "No signature found")
		return
	}

	outcome, err := a.payments.ParseWebhookEvent(ctx, payload, signature)
	if err != nil {
		if payments.IsAdmissionError(err) {
			logger.Warn("Stripe webhook signature verification failed", slog.String("error", err.Error()))
			a.writeError(w, http.StatusBadRequest, InputValidationError, "Webhook signature verification failed")
			return
		}

		// Resolution and transport failures get a retryable status so the
		// provider redelivers.
		logger.Error("Failed to parse stripe webhook event", slog.String("error", err.Error()))
		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to process webhook")
		return
	}

	if outcome.Kind == payments.EventIgnored {
		logger.Info("Ignoring stripe webhook event", slog.String("event-type", outcome.EventType))
		a.writeJSON(w, http.StatusOK, webhookResponse{Received: true, EventType: outcome.EventType})
		return
	}

	result, err := registration.ReconcileCheckoutOutcome(ctx, outcome, a.db)
	if err != nil {
		logger.Error("Failed to reconcile checkout outcome",
			slog.String("error", err.Error()),
			slog.String("event-type", outcome.EventType),
		)
		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to process webhook")
		return
	}

	if outcome.Kind == payments.CheckoutCompleted {
		if !result.Applied {
			logger.Info("Payment already recorded for this registration, skipping",
				slog.String("registration-id", result.Matched.ID.String()),
				slog.String("payment-reference", outcome.PaymentReference),
			)
		} else if outcome.Succeeded() {
			err = registration.SendPaymentConfirmationEmail(ctx, a.notifier, a.cfg.FromAddress, result.Matched, outcome)
			if err != nil {
				// Payment success is the authoritative outcome; a failed
				// confirmation email must not fail the webhook or roll
				// anything back.
				logger.Error("Payment recorded but confirmation email failed",
					slog.String("error", err.Error()),
					slog.String("registration-id", result.Matched.ID.String()),
					slog.String("email", result.Matched.Email),
					slog.String("payment-reference", outcome.PaymentReference),
				)
			}
		}
	}

	if outcome.Kind == payments.CheckoutExpired {
		logger.Info("Expired checkout processed", slog.Int("registrations-expired", result.Expired))
	}

	a.writeJSON(w, http.StatusOK, webhookResponse{Received: true, EventType: outcome.EventType})
}
