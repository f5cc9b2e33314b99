// Package account models the payer identity established during submission.
// An account is keyed by email and reused across repeated registration
// attempts by the same person.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

type Repository interface {
	// EnsureAccount returns the existing account for the email or creates
	// one. A lost creation race returns an already-exists error instead of
	// guessing which writer won.
	EnsureAccount(ctx context.Context, email string) (Account, error)
}

func NewAccount(email string) Account {
	return Account{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
}
