package source

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-success response from the evidence backend
type APIError struct {
	StatusCode int
	Status     string
	messages   []string
}

func (e *APIError) Error() string {
	if len(e.messages) == 0 {
		return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, strings.Join(e.messages, "; "))
}

// Messages returns the human-readable messages from the response body
func (e *APIError) Messages() []string {
	if len(e.messages) == 0 {
		return []string{fmt.Sprintf("Request failed with status %d", e.StatusCode)}
	}
	return e.messages
}

// Retryable reports whether the status indicates a transient failure
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

type errorBody struct {
	Message string `json:"message"`
	Body    *struct {
		Message string `json:"message"`
	} `json:"body,omitempty"`
}

// parseErrorMessages extracts messages from the backend error payload.
// Both a single object and a list of objects are accepted.
func parseErrorMessages(body []byte) []string {
	var list []errorBody
	if err := json.Unmarshal(body, &list); err != nil {
		var single errorBody
		if err := json.Unmarshal(body, &single); err != nil {
			return nil
		}
		list = []errorBody{single}
	}

	var out []string
	for _, item := range list {
		msg := item.Message
		if msg == "" && item.Body != nil {
			msg = item.Body.Message
		}
		if msg = strings.TrimSpace(msg); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}
