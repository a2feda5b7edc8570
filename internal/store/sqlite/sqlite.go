package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/relay/internal/domain"
)

// tsLayout is fixed width so lexical order equals chronological order.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// Store manages request history in a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS historical_request (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			method           TEXT NOT NULL,
			url              TEXT NOT NULL,
			request_headers  TEXT NOT NULL DEFAULT '{}',
			request_body     TEXT NOT NULL DEFAULT '',
			status_code      INTEGER NOT NULL,
			response_headers TEXT NOT NULL DEFAULT '{}',
			response_body    TEXT NOT NULL DEFAULT '',
			timestamp        TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_historical_request_ts ON historical_request(timestamp DESC, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating history table: %w", err)
	}
	return nil
}

// Insert adds a new history entry and returns its id.
func (s *Store) Insert(ctx context.Context, rec domain.Record) (int64, error) {
	reqHeaders, err := encodeHeaders(rec.RequestHeaders)
	if err != nil {
		return 0, domain.NewStorageError("insert", err)
	}
	respHeaders, err := encodeHeaders(rec.ResponseHeaders)
	if err != nil {
		return 0, domain.NewStorageError("insert", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO historical_request
			(method, url, request_headers, request_body, status_code, response_headers, response_body, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Method, rec.URL, reqHeaders, rec.RequestBody,
		rec.StatusCode, respHeaders, rec.ResponseBody,
		formatTime(rec.Timestamp),
	)
	if err != nil {
		return 0, domain.NewStorageError("insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, domain.NewStorageError("insert", err)
	}
	return id, nil
}

// Get returns the full record for id.
func (s *Store) Get(ctx context.Context, id int64) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, method, url, request_headers, request_body, status_code, response_headers, response_body, timestamp
		FROM historical_request
		WHERE id = ?`, id)

	var (
		rec                     domain.Record
		reqHeaders, respHeaders string
		ts                      string
	)
	err := row.Scan(&rec.ID, &rec.Method, &rec.URL, &reqHeaders, &rec.RequestBody,
		&rec.StatusCode, &respHeaders, &rec.ResponseBody, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, domain.NewStorageError("get", err)
	}

	if rec.RequestHeaders, err = decodeHeaders(reqHeaders); err != nil {
		return domain.Record{}, domain.NewStorageError("get", err)
	}
	if rec.ResponseHeaders, err = decodeHeaders(respHeaders); err != nil {
		return domain.Record{}, domain.NewStorageError("get", err)
	}
	if rec.Timestamp, err = parseTime(ts); err != nil {
		return domain.Record{}, domain.NewStorageError("get", err)
	}
	return rec, nil
}

// Delete removes id; zero affected rows means it was not there.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM historical_request WHERE id = ?`, id)
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPage reads the window and the count inside one transaction so both see
// the same snapshot.
func (s *Store) ListPage(ctx context.Context, offset, limit int) ([]domain.Summary, int64, error) {
	if err := domain.ValidateWindow(offset, limit); err != nil {
		return nil, 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM historical_request`).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, method, url, status_code, timestamp
		FROM historical_request
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	defer func() { _ = rows.Close() }()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, domain.NewStorageError("list", err)
	}
	return summaries, total, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanSummaries(rows *sql.Rows) ([]domain.Summary, error) {
	summaries := []domain.Summary{}
	for rows.Next() {
		var (
			sum domain.Summary
			ts  string
		)
		if err := rows.Scan(&sum.ID, &sum.Method, &sum.URL, &sum.StatusCode, &ts); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		sum.Timestamp = t
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func formatTime(t time.Time) string {
	return domain.NormalizeTimestamp(t).Format(tsLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func encodeHeaders(h map[string]string) (string, error) {
	if h == nil {
		h = map[string]string{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encoding headers: %w", err)
	}
	return string(b), nil
}

func decodeHeaders(s string) (map[string]string, error) {
	h := map[string]string{}
	if s == "" {
		return h, nil
	}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil, fmt.Errorf("decoding headers: %w", err)
	}
	return h, nil
}
