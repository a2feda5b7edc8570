package domain

import "time"

// Record is the durable unit of truth for one relayed call.
//
// A Record is written once, as the terminal step of a relay attempt whose
// outcome is known, and never updated afterwards.
type Record struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store at insert time.
	// IDs increase monotonically and are never reused after deletion.
	ID int64 `json:"id"`

	// ─────────────────────────────
	// Request as sent by the caller
	// ─────────────────────────────

	// Method is the uppercase HTTP verb.
	Method string `json:"method"`

	// URL is stored as given. Validation happens in the executor.
	URL string `json:"url"`

	// RequestHeaders is never nil once the record leaves NewRecord.
	RequestHeaders map[string]string `json:"requestHeaders"`

	// RequestBody is the serialized wire form of the caller's body,
	// or "" when none was supplied.
	RequestBody string `json:"requestBody"`

	// ─────────────────────────────
	// Outcome
	// ─────────────────────────────

	// StatusCode is the relayed HTTP status, or NetworkFailureStatus (0)
	// when no HTTP response was obtained.
	StatusCode int `json:"statusCode"`

	// ResponseHeaders is empty on network failure.
	ResponseHeaders map[string]string `json:"responseHeaders"`

	// ResponseBody is the raw response body, or a diagnostic string
	// prefixed with NetworkErrorPrefix on network failure.
	ResponseBody string `json:"responseBody"`

	// Timestamp is set once at creation and is the primary sort key.
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the list projection of a Record. Header and body blobs are left out.
type Summary struct {
	ID         int64     `json:"id"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary projects the record for list results.
func (r Record) Summary() Summary {
	return Summary{
		ID:         r.ID,
		Method:     r.Method,
		URL:        r.URL,
		StatusCode: r.StatusCode,
		Timestamp:  r.Timestamp,
	}
}

// IsNetworkFailure reports whether the relay never reached the remote host.
func (r Record) IsNetworkFailure() bool {
	return r.StatusCode == NetworkFailureStatus
}

// IsError mirrors the consumer-side rule: network failures and 4xx/5xx.
func (r Record) IsError() bool {
	return IsErrorStatus(r.StatusCode)
}

// IsErrorStatus reports whether a relayed status should be shown as an error.
func IsErrorStatus(status int) bool {
	return status == NetworkFailureStatus || status >= 400
}

// NewRecord builds the record for a completed relay attempt. wireBody is the
// body exactly as it was sent upstream. Text fields are cleaned with the same
// rules as response bodies, so a NUL in a caller's JSON string is stored as U+FFFD.
// The timestamp is truncated to microseconds so every store orders it identically.
func NewRecord(req Request, wireBody string, outcome Outcome, now time.Time) Record {
	status, headers, body := Flatten(outcome)

	return Record{
		Method:          cleanText(req.NormalizedMethod()),
		URL:             cleanText(req.URL),
		RequestHeaders:  cleanHeaders(req.Headers),
		RequestBody:     cleanText(wireBody),
		StatusCode:      status,
		ResponseHeaders: headers,
		ResponseBody:    body,
		Timestamp:       NormalizeTimestamp(now),
	}
}

// NormalizeTimestamp converts t to UTC with microsecond precision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
