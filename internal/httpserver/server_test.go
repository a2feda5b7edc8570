package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/history"
	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/relay"
	"github.com/MrSnakeDoc/relay/internal/scheduler"
	"github.com/MrSnakeDoc/relay/internal/store/memory"
	"github.com/MrSnakeDoc/relay/internal/store/storetest"
)

type fixture struct {
	store   *memory.Store
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	st := memory.New()

	exec, err := executor.New(executor.Options{Timeout: 2 * time.Second, MaxRedirects: 3})
	require.NoError(t, err)

	probe := scheduler.NewStoreProbe(st, log, time.Hour)
	probe.Check(context.Background())

	d := deps.Deps{
		Logger:      log,
		StartTime:   time.Now(),
		Version:     "test",
		StoreDriver: "memory",
		Relay:       relay.New(exec, st, log, relay.Options{}),
		History:     history.New(st, history.Options{DefaultPageSize: 10, MaxPageSize: 100}),
		StoreProbe:  probe,
	}

	return &fixture{
		store:   st,
		handler: Router(log, d, 5*time.Second, []string{"https://ui.example"}),
	}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *fixture) seed(t *testing.T, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		id, err := f.store.Insert(context.Background(), storetest.Record(fmt.Sprintf("http://seed/%d", i), 200, time.Duration(i)*time.Second))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRelayEndpoint(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("nope"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"a":1}`))
	}))
	defer target.Close()

	f := newFixture(t)

	t.Run("structured success", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/requests", fmt.Sprintf(`{"method":"GET","url":%q}`, target.URL+"/ok"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Relay-Attempt-Id"))
		assert.NotEmpty(t, rec.Header().Get("X-Relay-History-Id"))

		out := decode(t, rec)
		assert.EqualValues(t, 200, out["statusCode"])
		assert.Equal(t, map[string]any{"a": float64(1)}, out["body"])
		assert.Equal(t, false, out["isError"])
	})

	t.Run("relayed error status mirrored", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/requests", fmt.Sprintf(`{"method":"GET","url":%q}`, target.URL+"/missing"))
		require.Equal(t, http.StatusNotFound, rec.Code)
		out := decode(t, rec)
		assert.EqualValues(t, 404, out["statusCode"])
		assert.Equal(t, "nope", out["body"])
		assert.Equal(t, true, out["isError"])
	})

	t.Run("network failure wrapped in 200", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/requests", `{"method":"GET","url":"http://127.0.0.1:1/"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.EqualValues(t, 0, out["statusCode"])
		assert.True(t, strings.HasPrefix(out["body"].(string), "Network Error:"))
	})
}

func TestRelayEndpointRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "missing url", body: `{"method":"GET"}`, wantMsg: "URL and Method are required"},
		{name: "missing method", body: `{"url":"http://x"}`, wantMsg: "URL and Method are required"},
		{name: "malformed json", body: `{"method":`, wantMsg: "Invalid request body"},
		{name: "non-string header", body: `{"method":"GET","url":"http://x","headers":{"a":1}}`, wantMsg: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/requests", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec)["message"])
		})
	}
	assert.Equal(t, 0, f.store.Count(), "rejected input must not be recorded")
}

func TestListEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 15)

	rec := f.do(t, http.MethodGet, "/api/requests?page=2&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.EqualValues(t, 15, out["total"])
	assert.EqualValues(t, 2, out["page"])
	assert.EqualValues(t, 10, out["limit"])
	requests := out["requests"].([]any)
	require.Len(t, requests, 5)
	first := requests[0].(map[string]any)
	assert.Equal(t, "http://seed/5", first["url"])
	assert.NotContains(t, first, "responseBody")

	rec = f.do(t, http.MethodGet, "/api/requests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode(t, rec)
	assert.EqualValues(t, 1, out["page"])
	assert.EqualValues(t, 10, out["limit"])

	rec = f.do(t, http.MethodGet, "/api/requests?page=9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode(t, rec)
	assert.Empty(t, out["requests"])
	assert.EqualValues(t, 15, out["total"])

	for _, q := range []string{"page=0", "page=abc", "limit=-1", "limit=1.5"} {
		rec = f.do(t, http.MethodGet, "/api/requests?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestDetailAndDeleteEndpoints(t *testing.T) {
	f := newFixture(t)
	ids := f.seed(t, 2)
	path := fmt.Sprintf("/api/requests/%d", ids[0])

	rec := f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.EqualValues(t, ids[0], out["id"])
	assert.Equal(t, `{"ok":true}`, out["responseBody"])
	assert.Equal(t, map[string]any{"ok": true}, out["responseBodyParsed"])

	rec = f.do(t, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Request deleted successfully", decode(t, rec)["message"])

	rec = f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Request not found", decode(t, rec)["message"])

	rec = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, bad := range []string{"abc", "0", "-3"} {
		rec = f.do(t, http.MethodGet, "/api/requests/"+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Equal(t, "Invalid request id", decode(t, rec)["message"])
	}
}

func TestOpsEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ready"])

	rec = f.do(t, http.MethodGet, "/infra", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "operational", out["mode"])
	store := out["store"].(map[string]any)
	assert.Equal(t, "memory", store["driver"])
	assert.Contains(t, out["relay"], "attempts")
}

func TestOpsEndpointsEnforceHost(t *testing.T) {
	log := logger.NewNop()
	st := memory.New()
	exec, err := executor.New(executor.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)

	d := deps.Deps{
		Logger:       log,
		StartTime:    time.Now(),
		StoreDriver:  "memory",
		AllowedHosts: []string{"ops.internal"},
		Relay:        relay.New(exec, st, log, relay.Options{}),
		History:      history.New(st, history.Options{}),
		StoreProbe:   scheduler.NewStoreProbe(st, log, time.Hour),
	}
	h := Router(log, d, 5*time.Second, nil)

	get := func(host, target string) int {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, get("relay.example", "/healthz"))
	assert.Equal(t, http.StatusOK, get("ops.internal:8080", "/healthz"))
	assert.Equal(t, http.StatusOK, get("relay.example", "/api/requests"), "history routes are not host-restricted")
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/requests", nil)
	req.Header.Set("Origin", "https://ui.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
