package api

import (
	"context"
	"log/slog"

	"github.com/artistlab-studio/campus-registration/account"
	"github.com/artistlab-studio/campus-registration/notify"
	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/artistlab-studio/campus-registration/registration"
	"github.com/google/uuid"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var _ DB = &mockDB{}

type mockDB struct {
	CreateRegistrationFunc         func(ctx context.Context, reg registration.Registration) error
	GetRegistrationsByEmailFunc    func(ctx context.Context, email string, limit int32) ([]registration.Registration, error)
	ApplyPaymentResultFunc         func(ctx context.Context, id uuid.UUID, status registration.PaymentStatus, paymentReference string) (bool, error)
	ExpirePendingRegistrationsFunc func(ctx context.Context, email string) (int, error)
	EnsureAccountFunc              func(ctx context.Context, email string) (account.Account, error)
}

func (m *mockDB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, reg)
	}
	return nil
}

func (m *mockDB) GetRegistrationsByEmail(ctx context.Context, email string, limit int32) ([]registration.Registration, error) {
	if m.GetRegistrationsByEmailFunc != nil {
		return m.GetRegistrationsByEmailFunc(ctx, email, limit)
	}
	return nil, nil
}

func (m *mockDB) ApplyPaymentResult(ctx context.Context, id uuid.UUID, status registration.PaymentStatus, paymentReference string) (bool, error) {
	if m.ApplyPaymentResultFunc != nil {
		return m.ApplyPaymentResultFunc(ctx, id, status, paymentReference)
	}
	return true, nil
}

func (m *mockDB) ExpirePendingRegistrations(ctx context.Context, email string) (int, error) {
	if m.ExpirePendingRegistrationsFunc != nil {
		return m.ExpirePendingRegistrationsFunc(ctx, email)
	}
	return 0, nil
}

func (m *mockDB) EnsureAccount(ctx context.Context, email string) (account.Account, error) {
	if m.EnsureAccountFunc != nil {
		return m.EnsureAccountFunc(ctx, email)
	}
	return account.NewAccount(email), nil
}

var _ payments.Provider = &mockPaymentsProvider{}

type mockPaymentsProvider struct {
	CreateCheckoutFunc    func(ctx context.Context, params payments.CheckoutParams) (payments.CheckoutInfo, error)
	ParseWebhookEventFunc func(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error)
}

func (m *mockPaymentsProvider) CreateCheckout(ctx context.Context, params payments.CheckoutParams) (payments.CheckoutInfo, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, params)
	}
	return payments.CheckoutInfo{}, nil
}

func (m *mockPaymentsProvider) ParseWebhookEvent(ctx context.Context, payload []byte, signature string) (payments.CheckoutOutcome, error) {
	if m.ParseWebhookEventFunc != nil {
		return m.ParseWebhookEventFunc(ctx, payload, signature)
	}
	return payments.CheckoutOutcome{}, nil
}

var _ notify.Sender = &mockSender{}

type mockSender struct {
	SendFunc func(ctx context.Context, msg notify.Message) error
}

func (m *mockSender) Send(ctx context.Context, msg notify.Message) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

func testConfig() Config {
	return Config{
		PriceID:     "price_test",
		SuccessURL:  "https://campus.example.com/merci",
		CancelURL:   "https://campus.example.com/annule",
		FromAddress: "Artist Lab CAMPUS <noreply@artistlab.studio>",
	}
}

func newTestAPI(db DB, provider payments.Provider, sender notify.Sender) *API {
	return NewAPI(db, noopLogger(), LOCAL, provider, sender, testConfig())
}
