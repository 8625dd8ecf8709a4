package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
)

// ClientService covers the one client flow this system owns: creation with
// address resolution and home-geofence derivation. Everything else about
// clients lives in the excluded management surface.
type ClientService struct {
	clients   repository.ClientsRepo
	geofences *GeofenceService
	audit     AuditSink
	logger    *zap.Logger
}

func NewClientService(clients repository.ClientsRepo, geofences *GeofenceService, audit AuditSink, logger *zap.Logger) *ClientService {
	return &ClientService{clients: clients, geofences: geofences, audit: audit, logger: logger}
}

// CreateResult reports partial success explicitly: a client whose address
// could not be resolved is still created, with GeofenceCreated=false.
type CreateResult struct {
	Client          *domain.Client
	Geofence        *domain.Geofence
	GeofenceCreated bool
}

func (s *ClientService) Create(ctx context.Context, actor string, c *domain.Client) (*CreateResult, error) {
	if c.Name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(actor, "client_created", "client", c.ClientID, map[string]any{"name": c.Name})

	geofence, err := s.geofences.DeriveHomeGeofence(ctx, s.clients, c, actor)
	if err != nil {
		// The client exists; derivation problems must not fail the create.
		s.logger.Warn("home geofence derivation failed",
			zap.String("client_id", c.ClientID), zap.Error(err))
		geofence = nil
	}

	return &CreateResult{
		Client:          c,
		Geofence:        geofence,
		GeofenceCreated: geofence != nil,
	}, nil
}

func (s *ClientService) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	return s.clients.Get(ctx, clientID)
}
