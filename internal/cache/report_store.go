package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/ports"
)

// ReportStore is a read-through cache in front of another ports.ReportStore.
//
// Only lookups by id are cached. Which report is stored for a period can be
// changed by another process sharing the same store (Regenerate, Delete), so
// FindByPeriod always asks next.
type ReportStore struct {
	next ports.ReportStore
	byID *LRUCache[uuid.UUID, core.Report]
}

func NewReportStore(next ports.ReportStore, size int, ttl time.Duration) *ReportStore {
	return &ReportStore{
		next: next,
		byID: NewLRUCache[uuid.UUID, core.Report](size, ttl),
	}
}

// Register adds the underlying cache to m.
func (s *ReportStore) Register(m *Manager) {
	m.Register("reports_by_id", s.byID)
}

func (s *ReportStore) Stats() Stats {
	return s.byID.Stats()
}

func (s *ReportStore) FindByPeriod(ctx context.Context, user core.UserID, start, end core.Date) (core.Report, error) {
	r, err := s.next.FindByPeriod(ctx, user, start, end)
	if err != nil {
		return core.Report{}, err
	}
	s.byID.Set(r.ID, r)
	return r, nil
}

func (s *ReportStore) Save(ctx context.Context, r core.Report) (core.Report, error) {
	saved, err := s.next.Save(ctx, r)
	if err != nil {
		return core.Report{}, err
	}
	s.byID.Set(saved.ID, saved)
	return saved, nil
}

func (s *ReportStore) Get(ctx context.Context, id uuid.UUID) (core.Report, error) {
	if r, ok := s.byID.Get(id); ok {
		return r, nil
	}
	r, err := s.next.Get(ctx, id)
	if err != nil {
		return core.Report{}, err
	}
	s.byID.Set(r.ID, r)
	return r, nil
}

func (s *ReportStore) ListByUser(ctx context.Context, user core.UserID) ([]core.Report, error) {
	return s.next.ListByUser(ctx, user)
}

func (s *ReportStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.byID.Delete(id)
	return s.next.Delete(ctx, id)
}
