package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/store"
)

// Store persists history in the historical_request table.
type Store struct {
	pool *pgxpool.Pool
}

// Open builds a pool for dsn and waits until the server answers.
func Open(ctx context.Context, dsn string, policy store.RetryPolicy, log logger.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	addr := fmt.Sprintf("%s:%d/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database)
	if err := store.WaitReady(ctx, "postgres", addr, pool.Ping, policy, log); err != nil {
		pool.Close()
		return nil, err
	}

	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, rec domain.Record) (int64, error) {
	reqHeaders := rec.RequestHeaders
	if reqHeaders == nil {
		reqHeaders = map[string]string{}
	}
	respHeaders := rec.ResponseHeaders
	if respHeaders == nil {
		respHeaders = map[string]string{}
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO historical_request
			(method, url, request_headers, request_body, status_code, response_headers, response_body, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		rec.Method, rec.URL, reqHeaders, rec.RequestBody,
		rec.StatusCode, respHeaders, rec.ResponseBody,
		domain.NormalizeTimestamp(rec.Timestamp),
	).Scan(&id)
	if err != nil {
		return 0, domain.NewStorageError("insert", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (domain.Record, error) {
	if !inSerialRange(id) {
		return domain.Record{}, domain.ErrNotFound
	}

	var rec domain.Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, method, url,
			COALESCE(request_headers, '{}'::jsonb), COALESCE(request_body, ''),
			status_code,
			COALESCE(response_headers, '{}'::jsonb), COALESCE(response_body, ''),
			"timestamp"
		FROM historical_request
		WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Method, &rec.URL, &rec.RequestHeaders, &rec.RequestBody,
		&rec.StatusCode, &rec.ResponseHeaders, &rec.ResponseBody, &rec.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, domain.NewStorageError("get", err)
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

func (s *Store) Delete(ctx context.Context, id int64) error {
	if !inSerialRange(id) {
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM historical_request WHERE id = $1`, id)
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPage runs the count and the window in one REPEATABLE READ transaction.
func (s *Store) ListPage(ctx context.Context, offset, limit int) ([]domain.Summary, int64, error) {
	if err := domain.ValidateWindow(offset, limit); err != nil {
		return nil, 0, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM historical_request`).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, method, url, status_code, "timestamp"
		FROM historical_request
		ORDER BY "timestamp" DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}

	summaries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Summary])
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	for i := range summaries {
		summaries[i].Timestamp = summaries[i].Timestamp.UTC()
	}
	if summaries == nil {
		summaries = []domain.Summary{}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	return summaries, total, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// inSerialRange reports whether id can exist in a SERIAL column.
func inSerialRange(id int64) bool {
	return id >= 1 && id <= math.MaxInt32
}
