package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

// MemoryClientsRepo 内存实现（无 DB 联测/单测用）
type MemoryClientsRepo struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client
}

func NewMemoryClientsRepo() *MemoryClientsRepo {
	return &MemoryClientsRepo{clients: map[string]*domain.Client{}}
}

func (r *MemoryClientsRepo) Create(_ context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	r.clients[c.ClientID] = &cp
	return nil
}

func (r *MemoryClientsRepo) Get(_ context.Context, clientID string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, domain.NewNotFoundError("client", clientID)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryClientsRepo) UpdateCoordinates(_ context.Context, clientID string, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return domain.NewNotFoundError("client", clientID)
	}
	c.Latitude, c.Longitude = &lat, &lng
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryUsersRepo 内存身份实现，默认角色 caregiver
type MemoryUsersRepo struct {
	mu    sync.RWMutex
	roles map[string]string
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{roles: map[string]string{}}
}

// SetRole seeds a role for dev and tests.
func (r *MemoryUsersRepo) SetRole(userID, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[userID] = role
}

func (r *MemoryUsersRepo) RoleName(_ context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if role, ok := r.roles[userID]; ok {
		return role, nil
	}
	return domain.RoleCaregiver, nil
}
