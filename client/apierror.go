package client

import (
	"fmt"
	"net/http"

	"github.com/genroar/pharmacy-client/internal/utils"
)

// Result is the classified outcome of a successful (or deliberately
// unthrown) call. AccountDisabled distinguishes a blocked account from an
// ordinary authentication failure; the server reports it on either a 401 or
// a 403 and both arrive here unthrown so callers have a single place to
// check.
type Result struct {
	StatusCode      int
	Body            []byte
	AccountDisabled bool
	Message         string
	Raw             map[string]any
}

// APIError is a structured non-2xx application error. Field and Errors are
// populated from validation failures so screens can render them per-field;
// Raw carries the parsed body for callers that need more.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
	Errors     []string
	Raw        map[string]any
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, msg)
}

// parseAPIError builds an APIError from a parsed JSON error body.
func parseAPIError(status int, raw map[string]any) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    messageFrom(raw),
		Raw:        raw,
	}
	if field, ok := raw["field"].(string); ok {
		apiErr.Field = field
	}
	if list, ok := raw["errors"].([]any); ok {
		apiErr.Errors = utils.ToStringSlice(list)
	}
	return apiErr
}

func messageFrom(raw map[string]any) string {
	if msg, ok := raw["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := raw["error"].(string); ok {
		return msg
	}
	return ""
}

func isAccountDisabled(status int, raw map[string]any) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	disabled, ok := raw["accountDisabled"].(bool)
	return ok && disabled
}
