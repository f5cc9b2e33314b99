package registration

import (
	"context"
	"fmt"

	"github.com/artistlab-studio/campus-registration/payments"
)

// Webhook delivery is retryable and out-of-order; matching is by payer email
// only, so we look at a small window of recent attempts.
const candidateLimit = 5

// ReconcileResult reports what a webhook event did to the store.
type ReconcileResult struct {
	// Matched is the registration the event was matched to. Only valid when
	// HasMatch is true (expired events update rows in place and ignored
	// events match nothing).
	Matched  Registration
	HasMatch bool

	// Applied is true when this delivery changed state. A redelivered event
	// reports false and must not trigger another notification.
	Applied bool

	// Expired is how many pending rows an expired-checkout event closed.
	Expired int
}

// ReconcileCheckoutOutcome matches a verified checkout outcome to the
// registration it concerns and applies the resulting state change exactly
// once. The provider only reports the payer's email, not a registration id,
// so candidate selection is the most recent pending registration for that
// email, falling back to the most recent one regardless of status.
func ReconcileCheckoutOutcome(ctx context.Context, outcome payments.CheckoutOutcome, repo Repository) (ReconcileResult, error) {
	switch outcome.Kind {
	case payments.CheckoutCompleted:
		return reconcileCompleted(ctx, outcome, repo)
	case payments.CheckoutExpired:
		return reconcileExpired(ctx, outcome, repo)
	default:
		return ReconcileResult{}, nil
	}
}

func reconcileCompleted(ctx context.Context, outcome payments.CheckoutOutcome, repo Repository) (ReconcileResult, error) {
	if outcome.Email == "" {
		return ReconcileResult{}, NewNoEmailForPayerError("Completed checkout outcome has no payer email")
	}

	regs, err := repo.GetRegistrationsByEmail(ctx, outcome.Email, candidateLimit)
	if err != nil {
		return ReconcileResult{}, err
	}
	if len(regs) == 0 {
		return ReconcileResult{}, NewRegistrationDoesNotExistError(fmt.Sprintf("No registration found for email %s", outcome.Email), nil)
	}

	candidate := selectCandidate(regs)

	// Idempotency guard: this event was already applied to the candidate.
	if candidate.PaymentReference != nil && *candidate.PaymentReference == outcome.PaymentReference {
		return ReconcileResult{Matched: candidate, HasMatch: true, Applied: false}, nil
	}

	status := PAYMENT_COMPLETED
	if !outcome.Succeeded() {
		status = PaymentStatus(outcome.ProviderStatus)
	}

	// Conditional update: only applies while no reference is recorded, so a
	// concurrent duplicate delivery loses the race instead of double-applying.
	applied, err := repo.ApplyPaymentResult(ctx, candidate.ID, status, outcome.PaymentReference)
	if err != nil {
		return ReconcileResult{}, err
	}

	if applied {
		candidate.PaymentStatus = status
		ref := outcome.PaymentReference
		candidate.PaymentReference = &ref
	}

	return ReconcileResult{Matched: candidate, HasMatch: true, Applied: applied}, nil
}

func reconcileExpired(ctx context.Context, outcome payments.CheckoutOutcome, repo Repository) (ReconcileResult, error) {
	if outcome.Email == "" {
		return ReconcileResult{}, NewNoEmailForPayerError("Expired checkout outcome has no payer email")
	}

	// Only rows still pending are touched; a registration completed earlier
	// is untouched by a stale expiry for the same email.
	n, err := repo.ExpirePendingRegistrations(ctx, outcome.Email)
	if err != nil {
		return ReconcileResult{}, err
	}

	return ReconcileResult{Applied: n > 0, Expired: n}, nil
}

// selectCandidate picks the most recent pending registration, else the most
// recent overall. regs must be ordered newest-first and non-empty.
func selectCandidate(regs []Registration) Registration {
	for _, reg := range regs {
		if reg.PaymentStatus == PAYMENT_PENDING {
			return reg
		}
	}
	return regs[0]
}
