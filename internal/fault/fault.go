// Package fault defines the error taxonomy shared by the event pipeline.
// Every error that crosses a component boundary is a go-errors envelope
// carrying one of the text codes below, so the batch caller can tell
// retryable conditions apart from permanent ones.
package fault

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAuth          = "AUTH_ERROR"
	CodeTransient     = "TRANSIENT_ERROR"
	CodeEmptyDocument = "EMPTY_DOCUMENT"
)

// Validation marks a malformed external response or degenerate computed
// geometry. Not retryable: the same input will fail again.
func Validation(msg string) error {
	return goerrors.New(msg, goerrors.CategoryValidation).WithTextCode(CodeValidation)
}

func WrapValidation(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, msg).WithTextCode(CodeValidation)
}

// Auth marks a missing token or a failed refresh.
func Auth(msg string) error {
	return goerrors.New(msg, goerrors.CategoryAuth).WithTextCode(CodeAuth)
}

func WrapAuth(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryAuth, msg).WithTextCode(CodeAuth)
}

// Transient marks a non-2xx response from an external call, keeping the
// status and response body for the logs.
func Transient(op string, status int, body string) error {
	return goerrors.New(fmt.Sprintf("%s: status %d: %s", op, status, body), goerrors.CategoryExternal).
		WithTextCode(CodeTransient).
		WithCode(status)
}

func WrapTransient(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, op).WithTextCode(CodeTransient)
}

// EmptyDocument marks a zero-length label download.
func EmptyDocument(msg string) error {
	return goerrors.New(msg, goerrors.CategoryExternal).WithTextCode(CodeEmptyDocument)
}

func textCode(err error) (string, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return "", false
	}
	return rich.TextCode, true
}

func IsValidation(err error) bool {
	code, ok := textCode(err)
	return ok && code == CodeValidation
}

func IsAuth(err error) bool {
	code, ok := textCode(err)
	return ok && code == CodeAuth
}

func IsTransient(err error) bool {
	code, ok := textCode(err)
	return ok && code == CodeTransient
}

func IsEmptyDocument(err error) bool {
	code, ok := textCode(err)
	return ok && code == CodeEmptyDocument
}

// Retryable reports whether redelivering the event could succeed. Unknown
// errors (driver failures, network errors that were not wrapped) count as
// retryable; only errors known to be deterministic do not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	code, ok := textCode(err)
	if !ok {
		return true
	}
	switch code {
	case CodeValidation, CodeEmptyDocument:
		return false
	default:
		return true
	}
}
