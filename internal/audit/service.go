package audit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Result bundles one query page with its aggregates and paging data.
type Result struct {
	Entries []Entry
	Stats   Stats
	Page    int
	Limit   int
}

// Service coordinates ledger reads.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Query returns one page of the filtered ledger together with aggregate
// counts by action and by entity type.
func (s *Service) Query(ctx context.Context, filters Filters, page, limit int) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page <= 0 {
		page = 1
	}

	entries, err := s.repo.Query(ctx, filters, limit, (page-1)*limit)
	if err != nil {
		return Result{}, err
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	byAction, err := s.repo.CountByAction(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	byEntity, err := s.repo.CountByEntity(ctx, filters)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Entries: entries,
		Stats:   Stats{Total: total, ByAction: byAction, ByEntity: byEntity},
		Page:    page,
		Limit:   limit,
	}, nil
}

// Export returns the whole filtered ledger without paging, newest first.
func (s *Service) Export(ctx context.Context, filters Filters) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, err
	}
	return s.repo.Query(ctx, filters, total, 0)
}

// Verify re-computes checksums for entries created since the given time and
// reports how many were checked and how many no longer match their stored
// digest. Mismatches indicate ledger tampering and are logged individually.
func (s *Service) Verify(ctx context.Context, since time.Time, limit int) (checked, mismatched int, err error) {
	if limit <= 0 {
		limit = 1000
	}
	entries, err := s.repo.ListSince(ctx, since, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		checked++
		if !bytes.Equal(e.Checksum, ComputeChecksum(e)) {
			mismatched++
			s.logger.Error("audit ledger checksum mismatch", slog.String("entry_id", e.ID.String()))
		}
	}
	return checked, mismatched, nil
}
