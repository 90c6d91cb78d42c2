package gviz

import (
	"errors"
	"strings"
)

// Parse errors. Both leave the caller with no usable response; the raw text
// should be logged for diagnosis.
var (
	// ErrFraming means the callback-wrapper markers were missing or out of
	// order, so the inner payload could not be recovered.
	ErrFraming = errors.New("gviz: response framing markers not found")

	// ErrMalformed means the inner payload was not a valid structured
	// document.
	ErrMalformed = errors.New("gviz: malformed response payload")
)

// Message is a single error or warning entry reported inside the envelope.
type Message struct {
	Reason          string `json:"reason"`
	Message         string `json:"message"`
	DetailedMessage string `json:"detailed_message"`
}

// QueryError is returned when the envelope parses cleanly but reports
// status "error". It carries the service's own error list.
type QueryError struct {
	Messages []Message
}

func (e *QueryError) Error() string {
	if len(e.Messages) == 0 {
		return "gviz: query failed"
	}
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		s := m.Reason
		if m.Message != "" {
			s += ": " + m.Message
		}
		parts = append(parts, s)
	}
	return "gviz: query failed: " + strings.Join(parts, "; ")
}
