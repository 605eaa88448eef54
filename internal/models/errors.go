package models

import (
	"errors"
	"fmt"
)

// Common error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrSubscriptionLocked = errors.New("subscription does not grant access")
	ErrPayment            = errors.New("payment failed")
)

// Error codes carried by AppError and mapped to HTTP statuses by the handler layer
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidState       = "INVALID_STATE"
	CodeSubscriptionLocked = "SUBSCRIPTION_LOCKED"
	CodePaymentError       = "PAYMENT_ERROR"
)

// AppError represents an application-level error with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrInvalidInput creates a validation error
func ErrInvalidInput(message string) error {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// ErrNotFoundWithMsg creates a not found error with custom message
func ErrNotFoundWithMsg(message string) error {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
		Err:     ErrNotFound,
	}
}

// ErrInvalidStateWithMsg creates an error for a disallowed status transition
func ErrInvalidStateWithMsg(message string) error {
	return &AppError{
		Code:    CodeInvalidState,
		Message: message,
		Err:     ErrInvalidState,
	}
}

// ErrSubscriptionLockedWithMsg creates an entitlement denial error
func ErrSubscriptionLockedWithMsg(message string) error {
	return &AppError{
		Code:    CodeSubscriptionLocked,
		Message: message,
		Err:     ErrSubscriptionLocked,
	}
}

// ErrPaymentWithMsg creates a checkout or payment callback error
func ErrPaymentWithMsg(message string) error {
	return &AppError{
		Code:    CodePaymentError,
		Message: message,
		Err:     ErrPayment,
	}
}

// ErrorCode returns the AppError code of err, or "" when err is not an AppError
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
