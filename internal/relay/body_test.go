package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/store/memory"
)

func TestRelayGzipWithCallerAcceptEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			_, _ = w.Write([]byte(`{"a":1}`))
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(`{"a":1}`))
		_ = zw.Close()
	}))
	defer srv.Close()

	st := memory.New()
	svc := newService(t, st)

	resp, err := svc.Relay(context.Background(), domain.Request{
		Method:  "GET",
		URL:     srv.URL,
		Headers: map[string]string{"Accept-Encoding": "gzip, deflate, br"},
	})
	require.NoError(t, err)

	v, ok := resp.Body.Structured()
	require.True(t, ok, "body should parse, got %v", resp.Body.Kind())
	assert.JSONEq(t, `{"a":1}`, string(v))
	assert.NotContains(t, resp.Headers, "content-encoding")

	rec := onlyRecord(t, st)
	assert.Equal(t, `{"a":1}`, rec.ResponseBody)
	assert.Equal(t, "gzip, deflate, br", rec.RequestHeaders["Accept-Encoding"], "caller headers are stored as given")
}

func TestRelayBinaryResponseIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0xfe})
	}))
	defer srv.Close()

	st := memory.New()
	svc := newService(t, st)

	resp, err := svc.Relay(context.Background(), domain.Request{Method: "GET", URL: srv.URL})
	require.NoError(t, err)
	assert.Positive(t, resp.RecordID)

	rec := onlyRecord(t, st)
	assert.True(t, utf8.ValidString(rec.ResponseBody))
	assert.NotContains(t, rec.ResponseBody, "\x00")
	assert.Equal(t, "\uFFFDPNG\uFFFD\uFFFD", rec.ResponseBody)

	raw, ok := resp.Body.Raw()
	require.True(t, ok)
	assert.Equal(t, rec.ResponseBody, raw)
}
