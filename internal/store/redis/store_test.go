package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/logger"
	relayredis "github.com/MrSnakeDoc/relay/internal/redis"
	"github.com/MrSnakeDoc/relay/internal/store"
	"github.com/MrSnakeDoc/relay/internal/store/storetest"
)

func integrationClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("RELAY_REDIS_ADDR_INTEGRATION")
	if addr == "" {
		t.Skip("skip integration test: RELAY_REDIS_ADDR_INTEGRATION is not set")
	}

	policy := store.DefaultRetryPolicy()
	policy.ConnectTimeout = 5 * time.Second
	client, err := relayredis.New(context.Background(), relayredis.ConnectOptions{
		Addr:  addr,
		Retry: policy,
	}, logger.NewNop())
	if err != nil {
		t.Skipf("skip integration test: redis unavailable: %v", err)
	}
	return client
}

func historyPattern(k keys) string { return k.prefix + "history:*" }

// flush removes every key under the prefix.
func flush(ctx context.Context, client *goredis.Client, k keys) error {
	iter := client.Scan(ctx, 0, historyPattern(k), 0).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func TestConformance(t *testing.T) {
	client := integrationClient(t)
	defer func() { _ = client.Close() }()

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		prefix := fmt.Sprintf("relaytest:%d:%d:", time.Now().UnixNano(), n)
		s := &Store{client: client, keys: keys{prefix: prefix}}
		t.Cleanup(func() { _ = flush(context.Background(), client, s.keys) })
		return s
	})
}

func TestKeys(t *testing.T) {
	k := keys{prefix: "p:"}
	assert.Equal(t, "p:history:seq", k.Seq())
	assert.Equal(t, "p:history:index", k.Index())
	assert.Equal(t, "p:history:record:42", k.Record(42))
	assert.Equal(t, "p:history:summary:42", k.Summary(42))
	assert.Equal(t, "p:history:*", historyPattern(k))
}

func TestMemberOrdering(t *testing.T) {
	assert.Less(t, Member(9), Member(10))
	assert.Len(t, Member(1), 20)

	id, err := ParseMember(Member(12345))
	require.NoError(t, err)
	assert.EqualValues(t, 12345, id)

	_, err = ParseMember("nope")
	assert.Error(t, err)
}

func TestNewStoreDefaultsPrefix(t *testing.T) {
	s := NewStore(nil, "")
	assert.Equal(t, DefaultKeyPrefix, s.keys.prefix)
}
