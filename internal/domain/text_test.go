package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestStoredText(t *testing.T) {
	tests := []struct {
		name      string
		in        []byte
		truncated bool
		want      string
	}{
		{
			name: "plain text untouched",
			in:   []byte(`{"a":"héllo"}`),
			want: `{"a":"héllo"}`,
		},
		{
			name: "binary body becomes replacement runes",
			in:   []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0xfe},
			want: "\uFFFDPNG\uFFFD\uFFFD",
		},
		{
			name:      "cut rune at the read limit is dropped",
			in:        []byte("caf\xc3"),
			truncated: true,
			want:      "caf",
		},
		{
			name:      "cut three-byte rune is dropped",
			in:        []byte("ok \xe2\x82"),
			truncated: true,
			want:      "ok ",
		},
		{
			name:      "complete rune at the limit is kept",
			in:        []byte("café"),
			truncated: true,
			want:      "café",
		},
		{
			name: "cut rune without truncation is replaced",
			in:   []byte("caf\xc3"),
			want: "caf\uFFFD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StoredText(tt.in, tt.truncated)
			if got != tt.want {
				t.Errorf("StoredText() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) || strings.Contains(got, "\x00") {
				t.Errorf("StoredText() = %q is not storable text", got)
			}
		})
	}
}

func TestFlattenCleansBinaryResponse(t *testing.T) {
	_, headers, body := Flatten(&HTTPResponse{
		StatusCode: 200,
		Headers:    map[string]string{"x-raw": "a\xffb"},
		Body:       []byte{0x89, 'P', 'N', 'G', 0x00, 0xff},
	})

	if body != "\uFFFDPNG\uFFFD\uFFFD" {
		t.Errorf("body = %q", body)
	}
	if headers["x-raw"] != "a\uFFFDb" {
		t.Errorf("header = %q", headers["x-raw"])
	}
}

func TestNewRecordCleansRequestText(t *testing.T) {
	req := Request{
		Method:  "post",
		URL:     "https://api.example.com/\x00",
		Headers: map[string]string{"X-Note": "nul\x00here"},
	}

	rec := NewRecord(req, "\"a\x00b\"", &HTTPResponse{StatusCode: 200}, time.Now())

	for name, v := range map[string]string{
		"url":    rec.URL,
		"header": rec.RequestHeaders["X-Note"],
		"body":   rec.RequestBody,
	} {
		if strings.Contains(v, "\x00") {
			t.Errorf("%s still holds a NUL: %q", name, v)
		}
	}
	if rec.RequestHeaders["X-Note"] != "nul\uFFFDhere" {
		t.Errorf("header = %q", rec.RequestHeaders["X-Note"])
	}
}
