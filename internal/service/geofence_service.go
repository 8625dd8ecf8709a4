package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geocoding"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
)

// Geocoder is the slice of the geocoding orchestrator the services consume.
type Geocoder interface {
	AddressToCoordinates(ctx context.Context, address string, timeout time.Duration, maxRetries int) (*geocoding.Result, error)
	CoordinatesToAddress(ctx context.Context, lat, lng float64, timeout time.Duration, maxRetries int) (*geocoding.Result, error)
	DistanceBetween(p1, p2 geo.Point) float64
}

// GeofenceService owns geofence lifecycle and containment evaluation.
type GeofenceService struct {
	geofences repository.GeofencesRepo
	geocoder  Geocoder
	audit     AuditSink
	logger    *zap.Logger
}

func NewGeofenceService(geofences repository.GeofencesRepo, geocoder Geocoder, audit AuditSink, logger *zap.Logger) *GeofenceService {
	return &GeofenceService{geofences: geofences, geocoder: geocoder, audit: audit, logger: logger}
}

// CreateGeofence validates and persists a new region.
func (s *GeofenceService) CreateGeofence(ctx context.Context, g *domain.Geofence) (*domain.Geofence, error) {
	if g.Name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if g.ClientID == "" {
		return nil, domain.NewValidationError("client_id", "is required")
	}
	if g.Kind == "" {
		g.Kind = domain.GeofenceCircle
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.IsActive = true
	if err := s.geofences.Create(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(g.CreatedBy, "geofence_created", "geofence", g.GeofenceID, map[string]any{
		"client_id":     g.ClientID,
		"geofence_type": g.Kind,
	})
	return g, nil
}

func (s *GeofenceService) Get(ctx context.Context, geofenceID string) (*domain.Geofence, error) {
	return s.geofences.Get(ctx, geofenceID)
}

func (s *GeofenceService) ListActive(ctx context.Context) ([]*domain.Geofence, error) {
	return s.geofences.ListActive(ctx)
}

func (s *GeofenceService) ListActiveByClient(ctx context.Context, clientID string) ([]*domain.Geofence, error) {
	return s.geofences.ListActiveByClient(ctx, clientID)
}

// Update re-validates and persists changes to an existing region.
func (s *GeofenceService) Update(ctx context.Context, actor string, g *domain.Geofence) (*domain.Geofence, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.geofences.Update(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(actor, "geofence_updated", "geofence", g.GeofenceID, nil)
	return g, nil
}

// Deactivate soft-deletes; the row stays for audit history.
func (s *GeofenceService) Deactivate(ctx context.Context, actor, geofenceID string) error {
	if err := s.geofences.Deactivate(ctx, geofenceID); err != nil {
		return err
	}
	s.audit.Record(actor, "geofence_deleted", "geofence", geofenceID, nil)
	return nil
}

// EvaluatePoint answers "is point P inside any of client C's active
// geofences". The nearest reference-point distance is always computed for
// diagnostics, inside or out. A client with zero active geofences evaluates
// to outside with NaN distance.
func (s *GeofenceService) EvaluatePoint(ctx context.Context, clientID string, p geo.Point) (*domain.GeofenceEvaluation, error) {
	regions, err := s.geofences.ListActiveByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return evaluate(regions, p), nil
}

// HasActiveGeofences reports whether any active region exists for a client.
func (s *GeofenceService) HasActiveGeofences(ctx context.Context, clientID string) (bool, error) {
	regions, err := s.geofences.ListActiveByClient(ctx, clientID)
	if err != nil {
		return false, err
	}
	return len(regions) > 0, nil
}

func evaluate(regions []*domain.Geofence, p geo.Point) *domain.GeofenceEvaluation {
	eval := &domain.GeofenceEvaluation{
		Matched:               []string{},
		NearestDistanceMeters: math.NaN(),
	}
	for _, g := range regions {
		if g.ContainsPoint(p) {
			eval.Inside = true
			eval.Matched = append(eval.Matched, g.GeofenceID)
		}
		d := geo.DistanceMeters(p, g.ReferencePoint())
		if math.IsNaN(eval.NearestDistanceMeters) || d < eval.NearestDistanceMeters {
			eval.NearestDistanceMeters = d
		}
	}
	return eval
}

// DeriveHomeGeofence creates the default 100m circular geofence around a
// client's residence. Existing client coordinates are preferred; otherwise
// the address is geocoded. Resolution failure is a reportable non-fatal
// outcome: the return is (nil, nil) and the caller surfaces
// geofence_created=false.
func (s *GeofenceService) DeriveHomeGeofence(ctx context.Context, clients repository.ClientsRepo, client *domain.Client, createdBy string) (*domain.Geofence, error) {
	var lat, lng float64
	switch {
	case client.Latitude != nil && client.Longitude != nil:
		lat, lng = *client.Latitude, *client.Longitude
	case client.Address != "":
		res, err := s.geocoder.AddressToCoordinates(ctx, client.Address, geocoding.DefaultTimeout, geocoding.DefaultMaxRetries)
		if err != nil {
			if errors.Is(err, geocoding.ErrUnresolved) {
				s.logger.Warn("skipping home geofence: address unresolved",
					zap.String("client_id", client.ClientID))
				return nil, nil
			}
			return nil, err
		}
		lat, lng = res.Latitude, res.Longitude
		if err := clients.UpdateCoordinates(ctx, client.ClientID, lat, lng); err != nil {
			return nil, err
		}
		client.Latitude, client.Longitude = &lat, &lng
	default:
		// no address, no coordinates: nothing to derive from
		return nil, nil
	}

	g := &domain.Geofence{
		ClientID:     client.ClientID,
		Name:         client.Name + " Residence",
		Description:  "Home address: " + client.Address,
		Kind:         domain.GeofenceCircle,
		CenterLat:    lat,
		CenterLng:    lng,
		RadiusMeters: domain.DefaultHomeRadiusMeters,
		IsActive:     true,
		CreatedBy:    createdBy,
	}
	if err := s.geofences.Create(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(createdBy, "geofence_created_for_client", "geofence", g.GeofenceID, map[string]any{
		"client_id": client.ClientID,
		"address":   client.Address,
	})
	return g, nil
}
