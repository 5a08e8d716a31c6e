package errprocess

import (
	"errors"
	"net/http"

	"social_network_service/pkg/logger"
)

// Kind 錯誤分類，決定回傳給 caller 的行為
type Kind int

const (
	// KindInternal unexpected server side error
	KindInternal Kind = iota
	// KindValidation bad input, rejected before any persistence
	KindValidation
	// KindForbidden caller is not allowed to touch the resource
	KindForbidden
	// KindNotFound unknown conversation/message/notification id
	KindNotFound
	// KindTransient datastore unavailable, idempotent reads may retry
	KindTransient
)

// AppError definition error with kind
type AppError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap expose the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation create a validation error
func Validation(msg string) error {
	return &AppError{Kind: KindValidation, Msg: msg}
}

// Forbidden create a forbidden error, logged because it may signal abuse
func Forbidden(msg string) error {
	logger.Log.Warn(msg)
	return &AppError{Kind: KindForbidden, Msg: msg}
}

// NotFound create a not found error
func NotFound(msg string) error {
	return &AppError{Kind: KindNotFound, Msg: msg}
}

// Transient wrap a datastore error that may clear on retry
func Transient(msg string, err error) error {
	return &AppError{Kind: KindTransient, Msg: msg, Err: err}
}

// KindOf classify an error, KindInternal when unknown
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusCode map an error kind to an HTTP status
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
