package payments

import (
	"errors"
	"fmt"
)

type ErrorReason string

const (
	REASON_INVALID_SIGNATURE        ErrorReason = "INVALID_SIGNATURE"
	REASON_MISSING_SIGNATURE        ErrorReason = "MISSING_SIGNATURE"
	REASON_NO_CUSTOMER_FOR_CHECKOUT ErrorReason = "NO_CUSTOMER_FOR_CHECKOUT"
	REASON_NO_EMAIL_FOR_CUSTOMER    ErrorReason = "NO_EMAIL_FOR_CUSTOMER"
	REASON_NO_PAYMENT_FOR_CHECKOUT  ErrorReason = "NO_PAYMENT_FOR_CHECKOUT"
	REASON_PROVIDER_CALL_FAILED     ErrorReason = "PROVIDER_CALL_FAILED"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newPaymentsError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewInvalidSignatureError(message string, cause error) *Error {
	return newPaymentsError(REASON_INVALID_SIGNATURE, message, cause)
}

func NewMissingSignatureError(message string) *Error {
	return newPaymentsError(REASON_MISSING_SIGNATURE, message, nil)
}

func NewNoCustomerForCheckoutError(message string) *Error {
	return newPaymentsError(REASON_NO_CUSTOMER_FOR_CHECKOUT, message, nil)
}

func NewNoEmailForCustomerError(message string) *Error {
	return newPaymentsError(REASON_NO_EMAIL_FOR_CUSTOMER, message, nil)
}

func NewNoPaymentForCheckoutError(message string) *Error {
	return newPaymentsError(REASON_NO_PAYMENT_FOR_CHECKOUT, message, nil)
}

func NewProviderCallFailedError(message string, cause error) *Error {
	return newPaymentsError(REASON_PROVIDER_CALL_FAILED, message, cause)
}

// IsAdmissionError reports whether err means the webhook request itself was
// not authentic and must be rejected without side effects.
func IsAdmissionError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Reason == REASON_INVALID_SIGNATURE || e.Reason == REASON_MISSING_SIGNATURE
}
