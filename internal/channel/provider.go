package channel

import (
	"context"
	"errors"
	"fmt"
)

// Provider sends one text message to one recipient through a messaging backend.
// Send returns nil on success and an error carrying a *SendError otherwise.
type Provider interface {
	Send(ctx context.Context, contact, text string) error
}

// SendError is a per-recipient delivery failure. Reason is stored verbatim
// in the message log.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	return e.Reason
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// NewSendError creates a send error with a formatted reason
func NewSendError(err error, format string, args ...any) *SendError {
	return &SendError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// Reason extracts the human-readable failure reason of err
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Reason
	}
	return err.Error()
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, contact, text string) error

// Send calls f
func (f ProviderFunc) Send(ctx context.Context, contact, text string) error {
	return f(ctx, contact, text)
}
