package registration

import (
	"context"
	"time"

	"github.com/artistlab-studio/campus-registration/sessions"
	"github.com/google/uuid"
)

// PaymentStatus is the payment lifecycle state of a registration. Besides the
// constants below, the raw provider status string is stored when the provider
// reports a payment outcome that is not a plain success.
type PaymentStatus string

const (
	PAYMENT_PENDING   PaymentStatus = "pending"
	PAYMENT_COMPLETED PaymentStatus = "completed"
	PAYMENT_EXPIRED   PaymentStatus = "expired"
	PAYMENT_FAILED    PaymentStatus = "failed"
)

// Registration is a single attendee's sign-up attempt for a training session.
type Registration struct {
	ID        uuid.UUID
	Version   int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	Session   sessions.ID

	PaymentStatus PaymentStatus
	// PaymentReference is nil until the payment provider reports a
	// transaction id. Once set it must never change.
	PaymentReference *string

	CreatedAt time.Time
}

type Repository interface {
	CreateRegistration(ctx context.Context, reg Registration) error
	// GetRegistrationsByEmail returns registrations for the email ordered
	// newest-first, at most limit rows.
	GetRegistrationsByEmail(ctx context.Context, email string, limit int32) ([]Registration, error)
	// ApplyPaymentResult sets the payment status and reference on the
	// registration, only if no reference has been recorded yet. It reports
	// whether the update was applied; false means the payment result was
	// already recorded and the caller must not re-notify.
	ApplyPaymentResult(ctx context.Context, id uuid.UUID, status PaymentStatus, paymentReference string) (bool, error)
	// ExpirePendingRegistrations marks every still-pending registration for
	// the email as expired and returns how many rows changed.
	ExpirePendingRegistrations(ctx context.Context, email string) (int, error)
}

// NewRegistration builds a pending registration for a submission.
func NewRegistration(firstName, lastName, email, phone, city string, session sessions.ID) (Registration, error) {
	if !sessions.IsValid(session) {
		return Registration{}, NewUnknownSessionError(string(session))
	}

	return Registration{
		ID:            uuid.New(),
		Version:       1,
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		Phone:         phone,
		City:          city,
		Session:       session,
		PaymentStatus: PAYMENT_PENDING,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
