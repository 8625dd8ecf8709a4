package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

// MemoryLocationsRepo 内存实现（无 DB 联测/单测用）
// The single mutex gives the same per-user serialization the Postgres
// implementation gets from row locks.
type MemoryLocationsRepo struct {
	mu      sync.Mutex
	samples []*domain.LocationSample
}

func NewMemoryLocationsRepo() *MemoryLocationsRepo {
	return &MemoryLocationsRepo{}
}

func (r *MemoryLocationsRepo) RecordActive(_ context.Context, s *domain.LocationSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.LocationID == "" {
		s.LocationID = uuid.NewString()
	}
	for _, prev := range r.samples {
		if prev.UserID == s.UserID && prev.IsActive {
			prev.IsActive = false
		}
	}
	s.IsActive = true
	s.CreatedAt = time.Now().UTC()
	cp := *s
	r.samples = append(r.samples, &cp)
	return nil
}

func (r *MemoryLocationsRepo) GetActive(_ context.Context, userID string) (*domain.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.samples) - 1; i >= 0; i-- {
		if r.samples[i].UserID == userID && r.samples[i].IsActive {
			cp := *r.samples[i]
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("active location", userID)
}

func (r *MemoryLocationsRepo) History(_ context.Context, f domain.LocationHistoryFilter) ([]*domain.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.LocationSample{}
	for _, s := range r.samples {
		if f.UserID != "" && s.UserID != f.UserID {
			continue
		}
		if f.StartDate != nil && s.Timestamp.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && s.Timestamp.After(*f.EndDate) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryLocationsRepo) UpdateAddress(_ context.Context, locationID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.samples {
		if s.LocationID == locationID {
			s.Address = address
			return nil
		}
	}
	return domain.NewNotFoundError("location", locationID)
}

// CountActive 返回某用户 active 样本数（测试断言用）
func (r *MemoryLocationsRepo) CountActive(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.samples {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n
}
