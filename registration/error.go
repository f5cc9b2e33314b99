package registration

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_REGISTRATION_DOES_NOT_EXIST     ErrorReason = "REGISTRATION_DOES_NOT_EXIST"
	REASON_REGISTRATION_ALREADY_EXISTS     ErrorReason = "REGISTRATION_ALREADY_EXISTS"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_NO_EMAIL_FOR_PAYER              ErrorReason = "NO_EMAIL_FOR_PAYER"
	REASON_UNKNOWN_SESSION                 ErrorReason = "UNKNOWN_SESSION"
	REASON_TIMED_OUT                       ErrorReason = "TIMED_OUT"
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

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewRegistrationAlreadyExistsError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_ALREADY_EXISTS, message, cause)
}

func NewRegistrationDoesNotExistError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_DOES_NOT_EXIST, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewNoEmailForPayerError(message string) *Error {
	return newRegistrationError(REASON_NO_EMAIL_FOR_PAYER, message, nil)
}

func NewUnknownSessionError(session string) *Error {
	return newRegistrationError(REASON_UNKNOWN_SESSION, fmt.Sprintf("Unknown training session %q", session), nil)
}

func NewTimeoutError(message string) *Error {
	return newRegistrationError(REASON_TIMED_OUT, message, nil)
}
