package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/config"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/store/memory"
	"github.com/MrSnakeDoc/relay/internal/store/sqlite"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	t.Run("memory", func(t *testing.T) {
		st, err := OpenStore(ctx, &config.Config{StoreDriver: config.DriverMemory}, log)
		require.NoError(t, err)
		defer st.Close()

		assert.IsType(t, &memory.Store{}, st)
		assert.NoError(t, st.Ping(ctx))
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{
			StoreDriver: config.DriverSQLite,
			SQLitePath:  filepath.Join(t.TempDir(), "history.db"),
		}
		st, err := OpenStore(ctx, cfg, log)
		require.NoError(t, err)
		defer st.Close()

		assert.IsType(t, &sqlite.Store{}, st)
		assert.NoError(t, st.Ping(ctx))
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenStore(ctx, &config.Config{StoreDriver: "mongo"}, log)
		assert.ErrorContains(t, err, `unknown store driver "mongo"`)
	})
}

func TestNewWiresMemoryStore(t *testing.T) {
	cfg := &config.Config{
		ListenPort:         "127.0.0.1:0",
		StoreDriver:        config.DriverMemory,
		OutboundTimeout:    30 * time.Second,
		MaxRedirects:       10,
		MaxResponseBytes:   1 << 20,
		DefaultPageSize:    10,
		MaxPageSize:        100,
		StoreProbeInterval: time.Minute,
	}

	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.server)
	require.NoError(t, a.store.Close())
}

func TestNewRejectsBadProxy(t *testing.T) {
	cfg := &config.Config{
		StoreDriver:   config.DriverMemory,
		OutboundProxy: "ftp://proxy.local:21",
	}

	_, err := New(context.Background(), cfg, logger.NewNop())
	assert.ErrorContains(t, err, "outbound executor")
}
