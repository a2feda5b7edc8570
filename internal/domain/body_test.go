package domain

import (
	"encoding/json"
	"testing"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind BodyKind
		wantJSON string
	}{
		{name: "object", raw: `{"ok":true}`, wantKind: BodyStructured, wantJSON: `{"ok":true}`},
		{name: "padded array", raw: "  [1,2]\n", wantKind: BodyStructured, wantJSON: `[1,2]`},
		{name: "bare number", raw: "42", wantKind: BodyStructured, wantJSON: `42`},
		{name: "html", raw: "<html></html>", wantKind: BodyRaw, wantJSON: `"<html></html>"`},
		{name: "empty", raw: "", wantKind: BodyRaw, wantJSON: `""`},
		{name: "network error text", raw: "Network Error: refused", wantKind: BodyRaw, wantJSON: `"Network Error: refused"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ParseBody(tt.raw)
			if b.Kind() != tt.wantKind {
				t.Fatalf("Kind() = %v, want %v", b.Kind(), tt.wantKind)
			}
			out, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(out) != tt.wantJSON {
				t.Errorf("Marshal() = %s, want %s", out, tt.wantJSON)
			}
		})
	}
}

func TestBodyAccessors(t *testing.T) {
	if _, ok := RawBody("x").Structured(); ok {
		t.Error("raw body should not report structured")
	}
	if s, ok := RawBody("x").Raw(); !ok || s != "x" {
		t.Errorf("Raw() = %q, %v", s, ok)
	}
	if v, ok := StructuredBody(json.RawMessage(`1`)).Structured(); !ok || string(v) != "1" {
		t.Errorf("Structured() = %s, %v", v, ok)
	}
}
