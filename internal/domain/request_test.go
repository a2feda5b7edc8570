package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "valid", req: Request{Method: "get", URL: "https://example.com"}},
		{name: "missing url", req: Request{Method: "GET"}, wantErr: true},
		{name: "missing method", req: Request{URL: "https://example.com"}, wantErr: true},
		{name: "blank method", req: Request{Method: "   ", URL: "https://example.com"}, wantErr: true},
		{name: "malformed url is not rejected here", req: Request{Method: "GET", URL: "not a url"}},
		{name: "method too long", req: Request{Method: strings.Repeat("X", MaxMethodLength+1), URL: "http://a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Validate() error should wrap ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestRequestValidateMessage(t *testing.T) {
	err := Request{}.Validate()
	if err == nil || err.Error() != "URL and Method are required" {
		t.Errorf("Validate() = %v, want URL and Method are required", err)
	}
}

func TestRequestHasBody(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"", false},
		{"null", false},
		{"false", false},
		{`""`, false},
		{"0", false},
		{`{}`, true},
		{`"text"`, true},
		{`[1]`, true},
		{"true", true},
	}

	for _, tt := range tests {
		r := Request{Body: json.RawMessage(tt.body)}
		if got := r.HasBody(); got != tt.want {
			t.Errorf("HasBody(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestNormalizedMethod(t *testing.T) {
	if got := (Request{Method: " patch "}).NormalizedMethod(); got != "PATCH" {
		t.Errorf("NormalizedMethod() = %q, want PATCH", got)
	}
}
