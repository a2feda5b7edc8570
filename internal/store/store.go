// Package store defines the history persistence contract shared by every driver.
package store

import (
	"context"

	"github.com/MrSnakeDoc/relay/internal/domain"
)

// Store persists history records.
//
// Implementations must be safe for concurrent use. Errors are
// domain.ErrNotFound for a missing id, domain.ErrInvalidRequest for a bad
// window, and a *domain.StorageError for anything the medium rejected.
type Store interface {
	// Insert assigns a fresh id and writes rec atomically. rec.ID is ignored.
	Insert(ctx context.Context, rec domain.Record) (int64, error)

	Get(ctx context.Context, id int64) (domain.Record, error)

	// Delete removes id. A second delete of the same id is domain.ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// ListPage returns up to limit summaries after skipping offset, ordered by
	// timestamp desc then id desc, plus the total count from the same snapshot.
	ListPage(ctx context.Context, offset, limit int) ([]domain.Summary, int64, error)

	// Ping checks the medium is reachable.
	Ping(ctx context.Context) error

	Close() error
}
