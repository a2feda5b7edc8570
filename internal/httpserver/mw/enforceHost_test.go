package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/relay/internal/logger"
)

func TestEnforceHost(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name  string
		hosts []string
		host  string
		want  int
	}{
		{name: "empty list passes", host: "anything.test", want: http.StatusOK},
		{name: "blank entries pass", hosts: []string{" ", ""}, host: "anything.test", want: http.StatusOK},
		{name: "exact match", hosts: []string{"ops.example.com"}, host: "ops.example.com", want: http.StatusOK},
		{name: "port ignored", hosts: []string{"localhost"}, host: "localhost:8080", want: http.StatusOK},
		{name: "case insensitive", hosts: []string{"Ops.Example.com"}, host: "OPS.example.COM", want: http.StatusOK},
		{name: "wildcard subdomain", hosts: []string{"*.example.com"}, host: "a.b.example.com", want: http.StatusOK},
		{name: "wildcard excludes apex", hosts: []string{"*.example.com"}, host: "example.com", want: http.StatusForbidden},
		{name: "suffix lookalike", hosts: []string{"*.example.com"}, host: "evilexample.com", want: http.StatusForbidden},
		{name: "other host", hosts: []string{"ops.example.com"}, host: "relay.example.com", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := EnforceHost(tt.hosts, logger.NewNop())(ok)

			r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			r.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
