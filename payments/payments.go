// Package payments wraps the hosted-checkout provider. The rest of the
// system treats checkout as a black box that returns a redirect URL and
// later reports an outcome through a signed webhook event.
package payments

import "context"

type CheckoutMode string

const (
	ModeOneTime      CheckoutMode = "payment"
	ModeSubscription CheckoutMode = "subscription"
)

type CheckoutParams struct {
	PriceID       string
	Mode          CheckoutMode
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	// ReferenceID is threaded through the checkout session so the
	// registration can be correlated without client-side state.
	ReferenceID string
}

type CheckoutInfo struct {
	SessionID string
	URL       string
}

// OutcomeKind classifies a webhook event. Only completed and expired
// checkouts are meaningful; everything else is acknowledged and ignored.
type OutcomeKind int

const (
	CheckoutCompleted OutcomeKind = iota
	CheckoutExpired
	EventIgnored
)

// CheckoutOutcome is the payment result extracted from a verified webhook
// event. Email comes from the provider's customer record, not the webhook
// body; the provider is the source of truth for payer identity.
type CheckoutOutcome struct {
	Kind      OutcomeKind
	EventType string

	Email string
	// PaymentReference is the provider transaction id (payment intent for
	// completed checkouts).
	PaymentReference string
	// ProviderStatus is the provider's raw payment status, e.g. "succeeded".
	ProviderStatus string

	AmountReceived int64
	Currency       string
}

func (o CheckoutOutcome) Succeeded() bool {
	return o.ProviderStatus == "succeeded"
}

type Provider interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (CheckoutInfo, error)
	// ParseWebhookEvent verifies the signature over the raw payload and
	// extracts the checkout outcome. Verification failure is an admission
	// error; the payload must not be parsed before it.
	ParseWebhookEvent(ctx context.Context, payload []byte, signature string) (CheckoutOutcome, error)
}
