package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sells-group/advisor-api/internal/resilience"
)

// translationRule maps an error-message substring to a status code and a
// human-readable message. Rules are checked in order; first match wins.
type translationRule struct {
	substrings []string
	status     int
	message    string
}

var translationRules = []translationRule{
	{
		substrings: []string{"request body too large"},
		status:     http.StatusRequestEntityTooLarge,
		message:    "The uploaded file is too large. Please upload a smaller file.",
	},
	{
		substrings: []string{"unsupported file type", "unsupported file kind"},
		status:     http.StatusBadRequest,
		message:    "That file type is not supported. Please upload a CSV, XLSX, or PDF file.",
	},
	{
		substrings: []string{"extract file"},
		status:     http.StatusBadRequest,
		message:    "The uploaded file could not be read. Please check the file and try again.",
	},
	{
		substrings: []string{"429", "503"},
		status:     http.StatusServiceUnavailable,
		message:    "The analysis service is busy right now. Please try again in a moment.",
	},
	{
		substrings: []string{"timeout", "deadline exceeded"},
		status:     http.StatusGatewayTimeout,
		message:    "The analysis took too long and timed out. Please try again.",
	},
	{
		substrings: []string{"connection refused", "no such host", "connection reset"},
		status:     http.StatusBadGateway,
		message:    "Could not reach the analysis service. Please try again shortly.",
	},
	{
		substrings: []string{"400", "401", "403", "404"},
		status:     http.StatusInternalServerError,
		message:    "The analysis service rejected the request. Please contact support if this persists.",
	},
}

// translate maps an internal error to an HTTP status and a message safe to
// show users. Unmatched errors keep the raw string in the message so the
// failure stays diagnosable from the client side.
func translate(err error) (int, string) {
	var exhausted *resilience.ExhaustedError
	if errors.As(err, &exhausted) {
		return http.StatusServiceUnavailable,
			"The analysis service is busy right now. Please try again in a moment."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout,
			"The analysis took too long and timed out. Please try again."
	}

	msg := err.Error()
	for _, rule := range translationRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.status, rule.message
			}
		}
	}
	return http.StatusInternalServerError, "Something went wrong during analysis: " + msg
}
