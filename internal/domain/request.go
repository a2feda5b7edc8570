package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxMethodLength matches the width of the persisted method column.
const MaxMethodLength = 255

// Request is what a caller asks the relay to send.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`

	// Body is the caller's value as JSON. nil or "null" means no body.
	Body json.RawMessage `json:"body,omitempty"`
}

// NormalizedMethod returns the trimmed, uppercase verb.
func (r Request) NormalizedMethod() string {
	return strings.ToUpper(strings.TrimSpace(r.Method))
}

// HasBody reports whether the caller supplied a body worth sending.
// Falsy JSON values are treated as absent, like the original relay did.
func (r Request) HasBody() bool {
	switch strings.TrimSpace(string(r.Body)) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

// Validate checks the fields the relay needs before doing any work.
// It never inspects the URL shape: that is reported by the executor as a
// network failure so the attempt still lands in history.
func (r Request) Validate() error {
	method := r.NormalizedMethod()
	if method == "" || strings.TrimSpace(r.URL) == "" {
		return InvalidRequest("URL and Method are required")
	}
	if len(method) > MaxMethodLength {
		return InvalidRequest(fmt.Sprintf("method exceeds %d characters", MaxMethodLength))
	}
	return nil
}
