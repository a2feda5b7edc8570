// Package storetest is the behavioral suite every store.Store driver must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/store"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Record builds a plausible record stamped at base+offset.
func Record(url string, status int, offset time.Duration) domain.Record {
	return domain.Record{
		Method:          "GET",
		URL:             url,
		RequestHeaders:  map[string]string{"Accept": "application/json"},
		RequestBody:     "",
		StatusCode:      status,
		ResponseHeaders: map[string]string{"content-type": "application/json"},
		ResponseBody:    `{"ok":true}`,
		Timestamp:       base.Add(offset),
	}
}

// Run executes the whole suite against fresh stores from open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertAssignsIncreasingIDs", testInsertAssignsIncreasingIDs},
		{"GetReturnsWhatWasInserted", testGetRoundTrip},
		{"GetNetworkFailureRecord", testGetNetworkFailure},
		{"BinaryResponseIsStored", testBinaryResponse},
		{"GetMissing", testGetMissing},
		{"DeleteRemovesRecord", testDelete},
		{"IDsAreNotReused", testIDsNotReused},
		{"ListOrdersNewestFirst", testListOrdering},
		{"ListBreaksTiesByID", testListTies},
		{"ListWindow", testListWindow},
		{"ListRejectsBadWindow", testListBadWindow},
		{"ConcurrentInserts", testConcurrentInserts},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func insert(t *testing.T, s store.Store, rec domain.Record) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func testInsertAssignsIncreasingIDs(t *testing.T, s store.Store) {
	first := insert(t, s, Record("http://a", 200, 0))
	second := insert(t, s, Record("http://b", 200, time.Second))

	assert.Positive(t, first)
	assert.Greater(t, second, first)
}

func testGetRoundTrip(t *testing.T, s store.Store) {
	rec := Record("https://api.example.com/items?q=1", 201, 1500*time.Microsecond)
	rec.Method = "POST"
	rec.RequestBody = `{"name":"widget"}`
	rec.RequestHeaders = map[string]string{"Content-Type": "application/json", "X-Trace": "abc"}
	rec.ResponseHeaders = map[string]string{"location": "/items/9", "set-cookie": "a=1, b=2"}
	rec.ResponseBody = "created éè \U0001F600"

	id := insert(t, s, rec)
	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, rec.Method, got.Method)
	assert.Equal(t, rec.URL, got.URL)
	assert.Equal(t, rec.RequestHeaders, got.RequestHeaders)
	assert.Equal(t, rec.RequestBody, got.RequestBody)
	assert.Equal(t, rec.StatusCode, got.StatusCode)
	assert.Equal(t, rec.ResponseHeaders, got.ResponseHeaders)
	assert.Equal(t, rec.ResponseBody, got.ResponseBody)
	assert.True(t, rec.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", got.Timestamp, rec.Timestamp)
}

func testGetNetworkFailure(t *testing.T, s store.Store) {
	rec := domain.NewRecord(
		domain.Request{Method: "GET", URL: "http://nowhere.invalid"},
		"",
		&domain.NetworkFailure{Message: "dial tcp: lookup nowhere.invalid: no such host"},
		base,
	)
	id := insert(t, s, rec)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkFailureStatus, got.StatusCode)
	assert.Equal(t, "Network Error: dial tcp: lookup nowhere.invalid: no such host", got.ResponseBody)
	assert.NotNil(t, got.ResponseHeaders)
	assert.Empty(t, got.ResponseHeaders)
	assert.NotNil(t, got.RequestHeaders)
}

func testBinaryResponse(t *testing.T, s store.Store) {
	rec := domain.NewRecord(
		domain.Request{
			Method:  "GET",
			URL:     "https://img.example.com/logo.png",
			Headers: map[string]string{"X-Note": "a\x00b"},
		},
		"",
		&domain.HTTPResponse{
			StatusCode: 200,
			Headers:    map[string]string{"content-type": "image/png"},
			Body:       []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0xfe, 0xe2, 0x82},
			Truncated:  true,
		},
		base,
	)
	id := insert(t, s, rec)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "\uFFFDPNG\uFFFD\uFFFD", got.ResponseBody)
	assert.Equal(t, "a\uFFFDb", got.RequestHeaders["X-Note"])
	assert.Equal(t, "image/png", got.ResponseHeaders["content-type"])
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(context.Background(), 987654)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "err = %v", err)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	keep := insert(t, s, Record("http://keep", 200, 0))
	drop := insert(t, s, Record("http://drop", 200, time.Second))

	require.NoError(t, s.Delete(ctx, drop))

	_, err := s.Get(ctx, drop)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "get after delete: %v", err)

	err = s.Delete(ctx, drop)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "second delete: %v", err)

	_, err = s.Get(ctx, keep)
	assert.NoError(t, err)

	summaries, total, err := s.ListPage(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, summaries, 1)
	assert.Equal(t, keep, summaries[0].ID)
}

func testIDsNotReused(t *testing.T, s store.Store) {
	ctx := context.Background()
	insert(t, s, Record("http://a", 200, 0))
	b := insert(t, s, Record("http://b", 200, time.Second))
	require.NoError(t, s.Delete(ctx, b))

	c := insert(t, s, Record("http://c", 200, 2*time.Second))
	assert.Greater(t, c, b)
}

func testListOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	// inserted out of chronological order
	mid := insert(t, s, Record("http://mid", 200, time.Minute))
	old := insert(t, s, Record("http://old", 404, 0))
	recent := insert(t, s, Record("http://recent", 500, 2*time.Minute))

	summaries, total, err := s.ListPage(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, summaries, 3)

	assert.Equal(t, []int64{recent, mid, old}, ids(summaries))
	assert.Equal(t, "http://recent", summaries[0].URL)
	assert.Equal(t, 500, summaries[0].StatusCode)
	assert.Equal(t, "GET", summaries[0].Method)
	assert.True(t, base.Add(2*time.Minute).Equal(summaries[0].Timestamp))
}

func testListTies(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := insert(t, s, Record("http://a", 200, time.Second))
	second := insert(t, s, Record("http://b", 200, time.Second))
	third := insert(t, s, Record("http://c", 200, time.Second))

	summaries, _, err := s.ListPage(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{third, second, first}, ids(summaries))

	// pages over a tie must not overlap
	p1, _, err := s.ListPage(ctx, 0, 2)
	require.NoError(t, err)
	p2, _, err := s.ListPage(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{third, second}, ids(p1))
	assert.Equal(t, []int64{first}, ids(p2))
}

func testListWindow(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		insert(t, s, Record(fmt.Sprintf("http://host/%d", i), 200, time.Duration(i)*time.Second))
	}

	tests := []struct {
		offset, limit int
		wantLen       int
		wantFirstURL  string
	}{
		{offset: 0, limit: 10, wantLen: 10, wantFirstURL: "http://host/24"},
		{offset: 10, limit: 10, wantLen: 10, wantFirstURL: "http://host/14"},
		{offset: 20, limit: 10, wantLen: 5, wantFirstURL: "http://host/4"},
		{offset: 25, limit: 10, wantLen: 0},
		{offset: 100, limit: 10, wantLen: 0},
	}

	for _, tt := range tests {
		summaries, total, err := s.ListPage(ctx, tt.offset, tt.limit)
		require.NoError(t, err)
		assert.EqualValues(t, 25, total, "offset %d", tt.offset)
		require.Len(t, summaries, tt.wantLen, "offset %d", tt.offset)
		assert.NotNil(t, summaries)
		if tt.wantLen > 0 {
			assert.Equal(t, tt.wantFirstURL, summaries[0].URL, "offset %d", tt.offset)
		}
	}
}

func testListBadWindow(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, _, err := s.ListPage(ctx, 0, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest), "limit 0: %v", err)
	_, _, err = s.ListPage(ctx, -1, 10)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest), "offset -1: %v", err)
}

func testConcurrentInserts(t *testing.T, s store.Store) {
	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Insert(context.Background(), Record(fmt.Sprintf("http://c/%d", i), 200, time.Duration(i)*time.Millisecond))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, seen, n, "ids must be distinct")
	_, total, err := s.ListPage(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, n, total)
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}

func ids(summaries []domain.Summary) []int64 {
	out := make([]int64, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, s.ID)
	}
	return out
}
