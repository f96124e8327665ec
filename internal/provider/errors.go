package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is a non-2xx answer from the provider. Body is the decoded JSON
// response, or the raw text when it was not JSON.
type Error struct {
	Op         string
	StatusCode int
	Body       any
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s failed: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Message picks a human readable reason out of the body.
func (e *Error) Message() string {
	if m, ok := e.Body.(map[string]any); ok {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := m[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := e.Body.(string); ok && s != "" {
		return s
	}
	return e.Error()
}

// Retryable reports whether the status is one the minimal-payload retry applies to.
func (e *Error) Retryable() bool {
	return e.StatusCode >= 400 && e.StatusCode < 600
}

func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
