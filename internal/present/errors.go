package present

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is reported when an evidence id is not in the visible slice
var ErrNotFound = errors.New("evidence not found")

// FetchError wraps a failed evidence fetch. It is recoverable by refreshing.
type FetchError struct {
	MatchID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch evidences for %s: %v", e.MatchID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// messager is implemented by errors that carry user-facing messages,
// such as backend error payloads
type messager interface {
	Messages() []string
}

// ReduceErrors flattens an error into human-readable messages.
// Joined errors contribute each branch; errors exposing Messages()
// contribute those instead of their technical text.
func ReduceErrors(err error) []string {
	if err == nil {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(msg string) {
		msg = strings.TrimSpace(msg)
		if msg != "" && !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}

	var walk func(e error)
	walk = func(e error) {
		if m, ok := e.(messager); ok {
			for _, msg := range m.Messages() {
				add(msg)
			}
			return
		}
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
			return
		case *FetchError:
			walk(x.Err)
			return
		}

		var m messager
		if errors.As(e, &m) {
			for _, msg := range m.Messages() {
				add(msg)
			}
			return
		}
		add(e.Error())
	}
	walk(err)

	if len(out) == 0 {
		out = append(out, "Unknown error")
	}
	return out
}
