package llm

import (
	"errors"
	"fmt"
)

// TransportError means a call to an external service failed at the network or
// service level. The core never retries these automatically; they surface to
// the user with a manual retry action.
type TransportError struct {
	Service    string // "gemini", "openai", "anthropic", "icons", ...
	StatusCode int    // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s transport error (status %d): %s", e.Service, e.StatusCode, truncate(msg, 200))
	}
	return fmt.Sprintf("%s transport error: %s", e.Service, truncate(msg, 200))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
