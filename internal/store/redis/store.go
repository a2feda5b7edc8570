package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/relay/internal/domain"
)

// maxListAttempts bounds optimistic retries when writers race a list read.
const maxListAttempts = 5

// Store keeps history in Redis. Records never expire.
type Store struct {
	client *redis.Client
	keys   keys
}

// NewStore creates a new Redis store. An empty prefix uses DefaultKeyPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		keys:   keys{prefix: prefix},
	}
}

// Insert takes the next id from the sequence, then writes the record, its
// summary and the index entry in one MULTI.
func (s *Store) Insert(ctx context.Context, rec domain.Record) (int64, error) {
	id, err := s.client.Incr(ctx, s.keys.Seq()).Result()
	if err != nil {
		return 0, domain.NewStorageError("insert", fmt.Errorf("failed to allocate id: %w", err))
	}

	rec.ID = id
	rec.Timestamp = domain.NormalizeTimestamp(rec.Timestamp)
	if rec.RequestHeaders == nil {
		rec.RequestHeaders = map[string]string{}
	}
	if rec.ResponseHeaders == nil {
		rec.ResponseHeaders = map[string]string{}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return 0, domain.NewStorageError("insert", fmt.Errorf("failed to marshal record: %w", err))
	}
	summary, err := json.Marshal(rec.Summary())
	if err != nil {
		return 0, domain.NewStorageError("insert", fmt.Errorf("failed to marshal summary: %w", err))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.Record(id), data, 0)
		pipe.Set(ctx, s.keys.Summary(id), summary, 0)
		pipe.ZAdd(ctx, s.keys.Index(), redis.Z{
			Score:  float64(rec.Timestamp.UnixMicro()),
			Member: Member(id),
		})
		return nil
	})
	if err != nil {
		return 0, domain.NewStorageError("insert", fmt.Errorf("failed to save record: %w", err))
	}

	return id, nil
}

// Get retrieves a record from Redis by ID
func (s *Store) Get(ctx context.Context, id int64) (domain.Record, error) {
	data, err := s.client.Get(ctx, s.keys.Record(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Record{}, domain.ErrNotFound
		}
		return domain.Record{}, domain.NewStorageError("get", err)
	}

	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Record{}, domain.NewStorageError("get", fmt.Errorf("failed to unmarshal record: %w", err))
	}
	if rec.RequestHeaders == nil {
		rec.RequestHeaders = map[string]string{}
	}
	if rec.ResponseHeaders == nil {
		rec.ResponseHeaders = map[string]string{}
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

// Delete removes the record, its summary and its index entry atomically.
func (s *Store) Delete(ctx context.Context, id int64) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keys.Record(id), s.keys.Summary(id))
		pipe.ZRem(ctx, s.keys.Index(), Member(id))
		return nil
	})
	if err != nil {
		return domain.NewStorageError("delete", fmt.Errorf("failed to delete record: %w", err))
	}
	if del.Val() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPage reads the index under WATCH so the count and the window come from
// the same state; a concurrent write aborts the read and it is retried.
func (s *Store) ListPage(ctx context.Context, offset, limit int) ([]domain.Summary, int64, error) {
	if err := domain.ValidateWindow(offset, limit); err != nil {
		return nil, 0, err
	}

	var (
		summaries []domain.Summary
		total     int64
	)
	read := func(tx *redis.Tx) error {
		var err error
		summaries, total, err = s.readWindow(ctx, tx, offset, limit)
		if err != nil {
			return err
		}
		// EXEC fails with TxFailedErr if the index moved since WATCH.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Ping(ctx)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxListAttempts; attempt++ {
		err = s.client.Watch(ctx, read, s.keys.Index())
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	return summaries, total, nil
}

func (s *Store) readWindow(ctx context.Context, tx *redis.Tx, offset, limit int) ([]domain.Summary, int64, error) {
	total, err := tx.ZCard(ctx, s.keys.Index()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	summaries := []domain.Summary{}
	if int64(offset) >= total {
		return summaries, total, nil
	}

	members, err := tx.ZRevRange(ctx, s.keys.Index(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read index: %w", err)
	}
	if len(members) == 0 {
		return summaries, total, nil
	}

	summaryKeys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := ParseMember(m)
		if err != nil {
			return nil, 0, err
		}
		summaryKeys = append(summaryKeys, s.keys.Summary(id))
	}

	values, err := tx.MGet(ctx, summaryKeys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read summaries: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, 0, fmt.Errorf("summary missing for index member %s", members[i])
		}
		var sum domain.Summary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		sum.Timestamp = sum.Timestamp.UTC()
		summaries = append(summaries, sum)
	}
	return summaries, total, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
