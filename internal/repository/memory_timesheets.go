package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

// MemoryTimesheetsRepo 内存实现（无 DB 联测/单测用）
// The mutex makes the check-and-set in CreateIfNoActive and Update atomic,
// mirroring the conditional INSERT/UPDATE of the Postgres implementation.
type MemoryTimesheetsRepo struct {
	mu         sync.Mutex
	timesheets map[string]*domain.Timesheet
	breaks     map[string]*domain.BreakInterval
}

func NewMemoryTimesheetsRepo() *MemoryTimesheetsRepo {
	return &MemoryTimesheetsRepo{
		timesheets: map[string]*domain.Timesheet{},
		breaks:     map[string]*domain.BreakInterval{},
	}
}

func (r *MemoryTimesheetsRepo) CreateIfNoActive(_ context.Context, t *domain.Timesheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.timesheets {
		if existing.UserID == t.UserID && existing.ClientID == t.ClientID &&
			existing.Status == domain.TimesheetActive {
			return domain.NewConflictError("an active timesheet already exists for this caregiver and client")
		}
	}
	if t.TimesheetID == "" {
		t.TimesheetID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.timesheets[t.TimesheetID] = &cp
	return nil
}

func (r *MemoryTimesheetsRepo) Get(_ context.Context, timesheetID string) (*domain.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timesheets[timesheetID]
	if !ok {
		return nil, domain.NewNotFoundError("timesheet", timesheetID)
	}
	cp := *t
	cp.Breaks = r.breaksForLocked(timesheetID)
	return &cp, nil
}

func (r *MemoryTimesheetsRepo) Update(_ context.Context, t *domain.Timesheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.timesheets[t.TimesheetID]
	if !ok {
		return domain.NewNotFoundError("timesheet", t.TimesheetID)
	}
	// Transitioning to active is rejected while a sibling timesheet for the
	// same (user, client) pair is active, matching the conditional UPDATE of
	// the Postgres implementation.
	if t.Status == domain.TimesheetActive {
		for id, other := range r.timesheets {
			if id != t.TimesheetID && other.UserID == t.UserID && other.ClientID == t.ClientID &&
				other.Status == domain.TimesheetActive {
				return domain.NewConflictError("an active timesheet already exists for this caregiver and client")
			}
		}
	}
	cp := *t
	cp.Breaks = nil
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.timesheets[t.TimesheetID] = &cp
	return nil
}

func (r *MemoryTimesheetsRepo) List(_ context.Context, f domain.TimesheetFilter) ([]*domain.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Timesheet{}
	for _, t := range r.timesheets {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.ClientID != "" && t.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.StartDate != nil && t.WorkDate.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && t.WorkDate.After(*f.EndDate) {
			continue
		}
		cp := *t
		cp.Breaks = r.breaksForLocked(t.TimesheetID)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.After(out[j].WorkDate) })
	return out, nil
}

func (r *MemoryTimesheetsRepo) AddBreak(_ context.Context, b *domain.BreakInterval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.BreakID == "" {
		b.BreakID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	r.breaks[b.BreakID] = &cp
	return nil
}

func (r *MemoryTimesheetsRepo) GetBreak(_ context.Context, timesheetID, breakID string) (*domain.BreakInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breaks[breakID]
	if !ok || b.TimesheetID != timesheetID {
		return nil, domain.NewNotFoundError("break", breakID)
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryTimesheetsRepo) UpdateBreak(_ context.Context, b *domain.BreakInterval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.breaks[b.BreakID]
	if !ok {
		return domain.NewNotFoundError("break", b.BreakID)
	}
	cp := *b
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.breaks[b.BreakID] = &cp
	return nil
}

func (r *MemoryTimesheetsRepo) breaksForLocked(timesheetID string) []*domain.BreakInterval {
	out := []*domain.BreakInterval{}
	for _, b := range r.breaks {
		if b.TimesheetID == timesheetID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}
