package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artistlab-studio/campus-registration/notify"
	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/artistlab-studio/campus-registration/registration"
	"github.com/artistlab-studio/campus-registration/sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRegistration(email string) registration.Registration {
	return registration.Registration{
		ID:            uuid.New(),
		Version:       1,
		FirstName:     "Jeanne",
		LastName:      "Moreau",
		Email:         email,
		Phone:         "+33612345678",
		City:          "Paris",
		Session:       sessions.PARIS,
		PaymentStatus: registration.PAYMENT_PENDING,
		CreatedAt:     time.Now().UTC(),
	}
}

func successOutcome(email string) payments.CheckoutOutcome {
	return payments.CheckoutOutcome{
		Kind:             payments.CheckoutCompleted,
		EventType:        "checkout.session.completed",
		Email:            email,
		PaymentReference: "pi_123",
		ProviderStatus:   "succeeded",
		AmountReceived:   29900,
		Currency:         "eur",
	}
}

func postWebhook(t *testing.T, handler http.Handler, body string, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeWebhookResponse(t *testing.T, res *httptest.ResponseRecorder) webhookResponse {
	t.Helper()

	var body webhookResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

func TestWebhookCompletedPayment(t *testing.T) {
	reg := pendingRegistration("a@x.com")

	var applied bool
	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			return []registration.Registration{reg}, nil
		},
		ApplyPaymentResultFunc: func(ctx context.Context, id uuid.UUID, status registration.PaymentStatus, paymentReference string) (bool, error) {
			applied = true
			assert.Equal(t, reg.ID, id)
			assert.Equal(t, registration.PAYMENT_COMPLETED, status)
			assert.Equal(t, "pi_123", paymentReference)
			return true, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return successOutcome("a@x.com"), nil
		},
	}

	var sent []notify.Message
	sender := &mockSender{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			sent = append(sent, msg)
			return nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, sender).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, decodeWebhookResponse(t, res).Received)
	assert.True(t, applied)
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].ToAddress)
}

func TestWebhookRedeliveryDoesNotRenotify(t *testing.T) {
	reg := pendingRegistration("a@x.com")
	reg.PaymentStatus = registration.PAYMENT_COMPLETED
	ref := "pi_123"
	reg.PaymentReference = &ref

	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			return []registration.Registration{reg}, nil
		},
		ApplyPaymentResultFunc: func(ctx context.Context, id uuid.UUID, status registration.PaymentStatus, paymentReference string) (bool, error) {
			t.Fatal("redelivery must not update the registration")
			return false, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return successOutcome("a@x.com"), nil
		},
	}

	sender := &mockSender{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			t.Fatal("redelivery must not send another email")
			return nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, sender).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, decodeWebhookResponse(t, res).Received)
}

func TestWebhookNonSuccessStatusSkipsEmail(t *testing.T) {
	reg := pendingRegistration("a@x.com")

	var appliedStatus registration.PaymentStatus
	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			return []registration.Registration{reg}, nil
		},
		ApplyPaymentResultFunc: func(ctx context.Context, id uuid.UUID, status registration.PaymentStatus, paymentReference string) (bool, error) {
			appliedStatus = status
			return true, nil
		},
	}

	outcome := successOutcome("a@x.com")
	outcome.ProviderStatus = "requires_payment_method"
	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return outcome, nil
		},
	}

	sender := &mockSender{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			t.Fatal("an unsuccessful payment must not be confirmed by email")
			return nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, sender).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, registration.PaymentStatus("requires_payment_method"), appliedStatus)
}

func TestWebhookExpiredCheckout(t *testing.T) {
	var expiredEmail string
	db := &mockDB{
		ExpirePendingRegistrationsFunc: func(ctx context.Context, email string) (int, error) {
			expiredEmail = email
			return 2, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return payments.CheckoutOutcome{
				Kind:      payments.CheckoutExpired,
				EventType: "checkout.session.expired",
				Email:     "a@x.com",
			}, nil
		},
	}

	sender := &mockSender{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			t.Fatal("expired checkouts must not send email")
			return nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, sender).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "a@x.com", expiredEmail)
}

func TestWebhookMissingSignature(t *testing.T) {
	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			t.Fatal("unsigned requests must not reach the store")
			return nil, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			t.Fatal("unsigned requests must not reach the provider")
			return payments.CheckoutOutcome{}, nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, &mockSender{}).Handler(), `{}`, "")

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestWebhookInvalidSignature(t *testing.T) {
	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			t.Fatal("a forged request must not reach the store")
			return nil, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return payments.CheckoutOutcome{}, payments.NewInvalidSignatureError("bad signature", nil)
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, &mockSender{}).Handler(), `{}`, "t=1,v1=forged")

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestWebhookProviderResolutionFailureIsRetryable(t *testing.T) {
	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return payments.CheckoutOutcome{}, payments.NewProviderCallFailedError("stripe is down", errors.New("boom"))
		},
	}

	res := postWebhook(t, newTestAPI(&mockDB{}, provider, &mockSender{}).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestWebhookIgnoredEventIsAcknowledged(t *testing.T) {
	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			t.Fatal("ignored events must not touch the store")
			return nil, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return payments.CheckoutOutcome{
				Kind:      payments.EventIgnored,
				EventType: "payment_intent.succeeded",
			}, nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, &mockSender{}).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, res.Code)
	body := decodeWebhookResponse(t, res)
	assert.True(t, body.Received)
	assert.Equal(t, "payment_intent.succeeded", body.EventType)
}

func TestWebhookReconcileFailureIsRetryable(t *testing.T) {
	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			return nil, registration.NewFailedToFetchError("dynamo unavailable", errors.New("boom"))
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return successOutcome("a@x.com"), nil
		},
	}

	sender := &mockSender{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			t.Fatal("a failed reconcile must not send email")
			return nil
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, sender).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestWebhookNotifierFailureStillAcknowledged(t *testing.T) {
	reg := pendingRegistration("a@x.com")

	db := &mockDB{
		GetRegistrationsByEmailFunc: func(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
			return []registration.Registration{reg}, nil
		},
	}

	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			return successOutcome("a@x.com"), nil
		},
	}

	sender := &mockSender{
		SendFunc: func(ctx context.Context, msg notify.Message) error {
			return errors.New("mailgun is down")
		},
	}

	res := postWebhook(t, newTestAPI(db, provider, sender).Handler(), `{}`, "t=1,v1=sig")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.True(t, decodeWebhookResponse(t, res).Received)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	provider := &mockPaymentsProvider{
		ParseWebhookEventFunc: func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
			t.Fatal("an oversized body must not be parsed")
			return payments.CheckoutOutcome{}, nil
		},
	}

	body := bytes.Repeat([]byte("a"), webhookBodyLimit+1)
	res := postWebhook(t, newTestAPI(&mockDB{}, provider, &mockSender{}).Handler(), string(body), "t=1,v1=sig")

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestWebhookPreflight(t *testing.T) {
	handler := newTestAPI(&mockDB{}, &mockPaymentsProvider{}, &mockSender{}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/webhooks/stripe", nil)
	req.Header.Set("Origin", "https://campus.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.NotEmpty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebhookRejectsNonPost(t *testing.T) {
	handler := newTestAPI(&mockDB{}, &mockPaymentsProvider{}, &mockSender{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/webhooks/stripe", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
}
