package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/relay/internal/domain"
)

// Store keeps history in process memory. Nothing survives a restart;
// it backs tests and throwaway local runs.
type Store struct {
	mu      sync.RWMutex
	records map[int64]domain.Record // ID -> Record
	order   []domain.Summary        // newest first (timestamp desc, id desc)
	lastID  int64                   // never decremented, so ids are not reused
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		records: make(map[int64]domain.Record),
	}
}

// Insert assigns the next id and indexes the record
func (s *Store) Insert(_ context.Context, rec domain.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	rec.ID = s.lastID
	rec = clone(rec)
	s.records[rec.ID] = rec

	sum := rec.Summary()
	i := s.position(sum)
	s.order = append(s.order, domain.Summary{})
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = sum

	return rec.ID, nil
}

// Get retrieves a record by ID
func (s *Store) Get(_ context.Context, id int64) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return domain.Record{}, domain.ErrNotFound
	}
	return clone(rec), nil
}

// Delete removes a record from the store
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.records, id)

	i := s.position(rec.Summary())
	if i < len(s.order) && s.order[i].ID == id {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
	return nil
}

// ListPage returns a window of the ordered summaries
func (s *Store) ListPage(_ context.Context, offset, limit int) ([]domain.Summary, int64, error) {
	if err := domain.ValidateWindow(offset, limit); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(len(s.order))
	if offset >= len(s.order) {
		return []domain.Summary{}, total, nil
	}
	end := min(offset+limit, len(s.order))

	out := make([]domain.Summary, end-offset)
	copy(out, s.order[offset:end])
	return out, total, nil
}

// Count returns the number of records in the store
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// position is the index where sum sits (or would sit) in s.order.
func (s *Store) position(sum domain.Summary) int {
	return sort.Search(len(s.order), func(i int) bool {
		return !newer(s.order[i], sum)
	})
}

// newer reports whether a sorts before b.
func newer(a, b domain.Summary) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// clone detaches header maps so callers cannot mutate stored state.
func clone(rec domain.Record) domain.Record {
	rec.RequestHeaders = maps.Clone(rec.RequestHeaders)
	rec.ResponseHeaders = maps.Clone(rec.ResponseHeaders)
	if rec.RequestHeaders == nil {
		rec.RequestHeaders = map[string]string{}
	}
	if rec.ResponseHeaders == nil {
		rec.ResponseHeaders = map[string]string{}
	}
	return rec
}
