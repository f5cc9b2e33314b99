package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

const providerCallTimeout = 30 * time.Second

var _ Provider = &StripeManager{}

// StripeManager implements Provider on the Stripe API. Webhook signature
// verification is the only authentication on the webhook path.
type StripeManager struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeManager(apiKey string, webhookSecret string) *StripeManager {
	return &StripeManager{
		sc:            client.New(apiKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (s *StripeManager) CreateCheckout(ctx context.Context, params CheckoutParams) (CheckoutInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()

	sessParams := &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Mode:       stripe.String(string(params.Mode)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if params.CustomerEmail != "" {
		sessParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	if params.ReferenceID != "" {
		sessParams.ClientReferenceID = stripe.String(params.ReferenceID)
	}

	sess, err := s.sc.CheckoutSessions.New(sessParams)
	if err != nil {
		return CheckoutInfo{}, NewProviderCallFailedError("Failed to create checkout session", err)
	}

	return CheckoutInfo{
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}

// checkoutSessionEvent is the slice of the webhook payload we care about.
type checkoutSessionEvent struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	PaymentIntent string `json:"payment_intent"`
}

func (s *StripeManager) ParseWebhookEvent(ctx context.Context, payload []byte, signature string) (CheckoutOutcome, error) {
	if signature == "" {
		return CheckoutOutcome{}, NewMissingSignatureError("No signature header on webhook request")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return CheckoutOutcome{}, NewInvalidSignatureError("Webhook signature verification failed", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess checkoutSessionEvent
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return CheckoutOutcome{}, NewProviderCallFailedError("Failed to decode checkout session event", err)
		}
		return s.completedOutcome(ctx, sess)
	case "checkout.session.expired":
		var sess checkoutSessionEvent
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return CheckoutOutcome{}, NewProviderCallFailedError("Failed to decode checkout session event", err)
		}
		email, err := s.customerEmail(ctx, sess)
		if err != nil {
			return CheckoutOutcome{}, err
		}
		return CheckoutOutcome{
			Kind:      CheckoutExpired,
			EventType: string(event.Type),
			Email:     email,
		}, nil
	default:
		return CheckoutOutcome{
			Kind:      EventIgnored,
			EventType: string(event.Type),
		}, nil
	}
}

func (s *StripeManager) completedOutcome(ctx context.Context, sess checkoutSessionEvent) (CheckoutOutcome, error) {
	if sess.PaymentIntent == "" {
		return CheckoutOutcome{}, NewNoPaymentForCheckoutError(fmt.Sprintf("No payment intent on checkout session %q", sess.ID))
	}

	ctx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()

	intent, err := s.sc.PaymentIntents.Get(sess.PaymentIntent, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return CheckoutOutcome{}, NewProviderCallFailedError(fmt.Sprintf("Failed to fetch payment intent %q", sess.PaymentIntent), err)
	}

	email, err := s.customerEmail(ctx, sess)
	if err != nil {
		return CheckoutOutcome{}, err
	}

	return CheckoutOutcome{
		Kind:             CheckoutCompleted,
		EventType:        "checkout.session.completed",
		Email:            email,
		PaymentReference: intent.ID,
		ProviderStatus:   string(intent.Status),
		AmountReceived:   intent.AmountReceived,
		Currency:         string(intent.Currency),
	}, nil
}

// customerEmail resolves the payer's email from the provider's customer
// record, never from the webhook body.
func (s *StripeManager) customerEmail(ctx context.Context, sess checkoutSessionEvent) (string, error) {
	if sess.Customer == "" {
		return "", NewNoCustomerForCheckoutError(fmt.Sprintf("No customer on checkout session %q", sess.ID))
	}

	ctx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()

	cust, err := s.sc.Customers.Get(sess.Customer, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", NewProviderCallFailedError(fmt.Sprintf("Failed to fetch customer %q", sess.Customer), err)
	}

	if cust.Email == "" {
		return "", NewNoEmailForCustomerError(fmt.Sprintf("No email on customer %q", sess.Customer))
	}

	return cust.Email, nil
}
