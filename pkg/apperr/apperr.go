// Package apperr is the error taxonomy shared by services and controllers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"gorm.io/gorm"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindRateLimited    Kind = "rate_limited"
	KindNetwork        Kind = "network"
	KindUnknown        Kind = "unknown"
)

// AppError carries a Kind next to a client-safe message.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *AppError { return &AppError{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *AppError   { return New(KindValidation, msg) }
func NotFound(msg string) *AppError     { return New(KindNotFound, msg) }
func Conflict(msg string) *AppError     { return New(KindConflict, msg) }
func Forbidden(msg string) *AppError    { return New(KindAuthorization, msg) }
func Unauthorized(msg string) *AppError { return New(KindAuthentication, msg) }
func RateLimited(msg string) *AppError  { return New(KindRateLimited, msg) }

func Network(msg string, err error) *AppError { return Wrap(KindNetwork, msg, err) }

// KindOf classifies any error, including ones that never passed through this package.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return KindConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// Message returns the client-facing text for err.
func Message(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "not found"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "already exists"
	}
	return err.Error()
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a retry could plausibly succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindRateLimited:
		return true
	}
	return false
}
