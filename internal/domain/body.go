package domain

import (
	"bytes"
	"encoding/json"
)

// BodyKind tags how a response body could be interpreted.
type BodyKind int

const (
	// BodyRaw is text that did not parse as JSON.
	BodyRaw BodyKind = iota
	// BodyStructured is a valid JSON document.
	BodyStructured
)

func (k BodyKind) String() string {
	if k == BodyStructured {
		return "structured"
	}
	return "raw"
}

// Body is a response body interpreted for display: Structured(value) or Raw(text).
type Body struct {
	kind       BodyKind
	structured json.RawMessage
	raw        string
}

// ParseBody attempts one JSON parse and falls back to the raw text. It never fails.
func ParseBody(raw string) Body {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return StructuredBody(json.RawMessage(trimmed))
	}
	return RawBody(raw)
}

// StructuredBody wraps an already valid JSON document.
func StructuredBody(v json.RawMessage) Body {
	return Body{kind: BodyStructured, structured: v}
}

// RawBody wraps plain text.
func RawBody(s string) Body {
	return Body{kind: BodyRaw, raw: s}
}

func (b Body) Kind() BodyKind { return b.kind }

// Structured returns the JSON value when the body parsed.
func (b Body) Structured() (json.RawMessage, bool) {
	return b.structured, b.kind == BodyStructured
}

// Raw returns the text when the body did not parse.
func (b Body) Raw() (string, bool) {
	return b.raw, b.kind == BodyRaw
}

// MarshalJSON emits the structured value as-is, or the raw text as a JSON string.
func (b Body) MarshalJSON() ([]byte, error) {
	if b.kind == BodyStructured {
		return b.structured, nil
	}
	return json.Marshal(b.raw)
}
