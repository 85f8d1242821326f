package resilience

import (
	"fmt"
	"strings"
)

// ExhaustedError is returned when every attempt in the retry budget failed
// with a transient error. It wraps the error from the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether an error from the model API is safe to retry.
// The upstream SDKs surface the HTTP status inside the error message rather
// than as a structured code, so classification is a substring match on "429"
// (rate limited) and "503" (service unavailable). This is deliberately the
// single place that knows about the convention; swap the implementation here
// if the provider ever exposes structured errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "503")
}
