package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type ErrorCode string

const (
	EmptyBody            ErrorCode = "EmptyBody"
	InvalidBody          ErrorCode = "InvalidBody"
	InputValidationError ErrorCode = "InputValidationError"
	AlreadyExists        ErrorCode = "AlreadyExists"
	InternalError        ErrorCode = "InternalError"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// User-visible submission messages. The site is French-first; the only
// special case is an already-registered account.
const (
	genericSubmitErrorMessage = "Une erreur est survenue lors de l'inscription. Veuillez réessayer."
	accountExistsMessage      = "Un compte existe déjà avec cette adresse email."
)

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		a.logger.Error("failed to marshal response body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBody)
}

func (a *API) writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	jsonBody, err := json.Marshal(&Error{Code: code, Message: message})
	if err != nil {
		a.logger.Error("failed to marshal error response", slog.String("error", err.Error()))
		jsonBody = []byte(`{"code": "InternalError", "message": "internal error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBody)
}
