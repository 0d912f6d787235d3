// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return *Error values for every rule they enforce;
// handlers turn the Kind into an HTTP status.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindBusinessRule
	KindConflict
)

// Business rule codes.
const (
	CodeEmptyCart           = "EMPTY_CART"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeProductUnavailable  = "PRODUCT_UNAVAILABLE"
	CodeUnavailableItems    = "UNAVAILABLE_ITEMS"
	CodeOrderNotCancellable = "ORDER_NOT_CANCELLABLE"
	CodeDuplicate           = "DUPLICATE"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Details is serialized next to the message, e.g. the list of
	// unavailable cart lines.
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail returns e with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func BusinessRule(code, format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: CodeDuplicate, Message: fmt.Sprintf(format, args...)}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// InsufficientStock reports the exact remaining count.
func InsufficientStock(available int) *Error {
	return BusinessRule(CodeInsufficientStock, "Only %d items available in stock", available).
		WithDetail("available", available)
}

func ProductUnavailable(reason string) *Error {
	if reason == "" {
		reason = "Product not found or not available"
	}
	return BusinessRule(CodeProductUnavailable, "%s", reason)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HasCode reports whether err carries the given business code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindBusinessRule, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
