package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

// MemoryGeofencesRepo 内存实现（无 DB 联测/单测用）
type MemoryGeofencesRepo struct {
	mu        sync.RWMutex
	geofences map[string]*domain.Geofence
}

func NewMemoryGeofencesRepo() *MemoryGeofencesRepo {
	return &MemoryGeofencesRepo{geofences: map[string]*domain.Geofence{}}
}

func (r *MemoryGeofencesRepo) Create(_ context.Context, g *domain.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.GeofenceID == "" {
		g.GeofenceID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	cp := *g
	r.geofences[g.GeofenceID] = &cp
	return nil
}

func (r *MemoryGeofencesRepo) Get(_ context.Context, geofenceID string) (*domain.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.geofences[geofenceID]
	if !ok {
		return nil, domain.NewNotFoundError("geofence", geofenceID)
	}
	cp := *g
	return &cp, nil
}

func (r *MemoryGeofencesRepo) ListActiveByClient(_ context.Context, clientID string) ([]*domain.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Geofence{}
	for _, g := range r.geofences {
		if g.IsActive && g.ClientID == clientID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sortGeofences(out)
	return out, nil
}

func (r *MemoryGeofencesRepo) ListActive(_ context.Context) ([]*domain.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Geofence{}
	for _, g := range r.geofences {
		if g.IsActive {
			cp := *g
			out = append(out, &cp)
		}
	}
	sortGeofences(out)
	return out, nil
}

func (r *MemoryGeofencesRepo) Update(_ context.Context, g *domain.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.geofences[g.GeofenceID]
	if !ok {
		return domain.NewNotFoundError("geofence", g.GeofenceID)
	}
	cp := *g
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.geofences[g.GeofenceID] = &cp
	return nil
}

func (r *MemoryGeofencesRepo) Deactivate(_ context.Context, geofenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.geofences[geofenceID]
	if !ok {
		return domain.NewNotFoundError("geofence", geofenceID)
	}
	g.IsActive = false
	g.UpdatedAt = time.Now().UTC()
	return nil
}

func sortGeofences(gs []*domain.Geofence) {
	sort.Slice(gs, func(i, j int) bool {
		if gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].GeofenceID < gs[j].GeofenceID
		}
		return gs[i].CreatedAt.Before(gs[j].CreatedAt)
	})
}
