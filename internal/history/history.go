// Package history answers read and delete requests over recorded relay attempts.
package history

import (
	"context"
	"fmt"
	"math"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/store"
)

// Page size bounds used when Options leaves them unset.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Options tunes a Service.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Detail is the full record prepared for display.
type Detail struct {
	domain.Record
	ResponseBodyParsed domain.Body `json:"responseBodyParsed"`
	IsError            bool        `json:"isError"`
}

// Service lists, shows and deletes history records.
type Service struct {
	store       store.Store
	defaultSize int
	maxSize     int
	// maxPage keeps (page-1)*pageSize inside int range on every platform.
	maxPage int
}

// New creates a history service on top of st.
func New(st store.Store, opts Options) *Service {
	if opts.MaxPageSize < 1 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return &Service{
		store:       st,
		defaultSize: opts.DefaultPageSize,
		maxSize:     opts.MaxPageSize,
		maxPage:     math.MaxInt / opts.MaxPageSize,
	}
}

// DefaultPageSize is used when the caller does not pick one.
func (s *Service) DefaultPageSize() int { return s.defaultSize }

// List returns page (1-based) of the history, newest first. pageSize above
// the configured maximum is clamped; the returned Page reports the size used.
// Pages past the end are empty but still carry the total.
func (s *Service) List(ctx context.Context, page, pageSize int) (domain.Page, error) {
	if page < 1 {
		return domain.Page{}, domain.InvalidRequest(fmt.Sprintf("page must be a positive integer, got %d", page))
	}
	if page > s.maxPage {
		return domain.Page{}, domain.InvalidRequest(fmt.Sprintf("page must be <= %d", s.maxPage))
	}
	if pageSize < 1 {
		return domain.Page{}, domain.InvalidRequest(fmt.Sprintf("limit must be a positive integer, got %d", pageSize))
	}
	pageSize = min(pageSize, s.maxSize)

	records, total, err := s.store.ListPage(ctx, domain.Offset(page, pageSize), pageSize)
	if err != nil {
		return domain.Page{}, fmt.Errorf("listing history: %w", err)
	}

	return domain.Page{
		Records:  records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Get returns the full record for id.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	if err := validateID(id); err != nil {
		return Detail{}, err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("reading record %d: %w", id, err)
	}

	return Detail{
		Record:             rec,
		ResponseBodyParsed: domain.ParseBody(rec.ResponseBody),
		IsError:            rec.IsError(),
	}, nil
}

// Delete removes id. Deleting an id twice reports domain.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	return nil
}

func validateID(id int64) error {
	if id < 1 {
		return domain.InvalidRequest("Invalid request id")
	}
	return nil
}
