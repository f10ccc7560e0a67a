package service

import (
	"fmt"
	"net/http"
)

// Kind classifies a domain error
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindStorage      Kind = "storage"
)

// Error is a domain error carrying the HTTP status it surfaces as and any
// extra response fields (e.g. suggested_min on a low offer).
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func invalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Status: http.StatusBadRequest, Message: message}
}

func forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Message: message}
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

func conflict(message string, status int) *Error {
	return &Error{Kind: KindConflict, Status: status, Message: message}
}

func unauthorized(message string) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusUnauthorized, Message: message}
}

// storageError wraps a transactional failure. The caller sees a generic
// message; the cause stays attached for logs.
func storageError(err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Status:  http.StatusInternalServerError,
		Message: "a storage error occurred, please retry",
		cause:   err,
	}
}

// lowOffer is the guardrail against time-wasting low-ball offers. Kept as a
// hard rejection, matching observed behavior, but the response reads as
// advisory so clients can present it that way.
func lowOffer(suggestedMin float64) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Status:  http.StatusBadRequest,
		Message: "",
		Fields: map[string]interface{}{
			"warning":       "Your offer is very low and unlikely to be accepted",
			"suggested_min": suggestedMin,
		},
	}
}
