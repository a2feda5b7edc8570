package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/store/sqlite"
	"github.com/MrSnakeDoc/relay/internal/version"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seedHistory points the config at a fresh sqlite file holding n records.
func seedHistory(t *testing.T, n int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("RELAY_STORE_DRIVER", "sqlite")
	t.Setenv("RELAY_SQLITE_PATH", path)
	t.Setenv("RELAY_PRETTY_LOG", "false")

	ctx := context.Background()
	st, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range n {
		_, err := st.Insert(ctx, domain.Record{
			Method:          "GET",
			URL:             "https://api.example.com/items/" + string(rune('a'+i)),
			RequestHeaders:  map[string]string{},
			StatusCode:      200,
			ResponseHeaders: map[string]string{"content-type": "application/json"},
			ResponseBody:    `{"ok":true}`,
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", out)
}

func TestHistoryList(t *testing.T) {
	seedHistory(t, 3)

	out, err := run(t, "history", "list", "--no-color", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "History: page 1 of 2 (3 records)")
	assert.Contains(t, out, "/items/c")
	assert.Contains(t, out, "/items/b")
	assert.NotContains(t, out, "/items/a")
}

func TestHistoryListJSON(t *testing.T) {
	seedHistory(t, 3)

	out, err := run(t, "history", "list", "--json", "--page", "2", "--limit", "2")
	require.NoError(t, err)

	var page domain.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Records, 1)
	assert.Equal(t, int64(1), page.Records[0].ID)
}

func TestHistoryShowAndDelete(t *testing.T) {
	seedHistory(t, 1)

	out, err := run(t, "history", "show", "1", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Request #1")
	assert.Contains(t, out, `"ok": true`)

	out, err = run(t, "history", "delete", "1", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Request #1 deleted")

	_, err = run(t, "history", "show", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryRejectsBadID(t *testing.T) {
	for _, arg := range []string{"0", "-3", "abc"} {
		t.Run(arg, func(t *testing.T) {
			_, err := run(t, "history", "show", "--", arg)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "invalid request id"))
		})
	}
}

func TestMigrateNeedsDatabaseURL(t *testing.T) {
	t.Setenv("RELAY_STORE_DRIVER", "memory")
	t.Setenv("RELAY_DATABASE_URL", "")

	_, err := run(t, "migrate", "version")
	assert.ErrorContains(t, err, "no database URL")
}

func TestServeFailsOnBadConfig(t *testing.T) {
	t.Setenv("RELAY_STORE_DRIVER", "mongo")

	_, err := run(t, "serve")
	assert.ErrorContains(t, err, "unknown RELAY_STORE_DRIVER")
}
