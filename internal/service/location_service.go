package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
	"github.com/NoJuanNobody/home-health-aid-app/internal/store"
)

const (
	activeLocationKeyPrefix = "location:active:"
	activeLocationTTL       = 10 * time.Minute
)

// LocationService owns the single current location per user plus the
// historical log, and evaluates every new sample against all active
// geofences system-wide.
type LocationService struct {
	locations repository.LocationsRepo
	geofences repository.GeofencesRepo
	users     repository.UsersRepo
	geocoder  Geocoder
	cache     store.KV
	audit     AuditSink
	logger    *zap.Logger
}

func NewLocationService(
	locations repository.LocationsRepo,
	geofences repository.GeofencesRepo,
	users repository.UsersRepo,
	geocoder Geocoder,
	cache store.KV,
	audit AuditSink,
	logger *zap.Logger,
) *LocationService {
	return &LocationService{
		locations: locations,
		geofences: geofences,
		users:     users,
		geocoder:  geocoder,
		cache:     cache,
		audit:     audit,
		logger:    logger,
	}
}

// Record deactivates the user's previous active sample, stores the new one,
// and returns the "entered" alerts for every active geofence containing the
// point. Evaluation is stateless per sample: no exit alerts, and repeated
// samples inside the same region re-report entry.
func (s *LocationService) Record(ctx context.Context, userID string, sample *domain.LocationSample) (*domain.LocationSample, []domain.GeofenceAlert, error) {
	if !geo.ValidateCoordinates(sample.Latitude, sample.Longitude) {
		return nil, nil, domain.NewValidationError("latitude/longitude", "invalid coordinates")
	}
	sample.UserID = userID
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	if err := s.locations.RecordActive(ctx, sample); err != nil {
		return nil, nil, err
	}

	point := geo.Point{Lat: sample.Latitude, Lng: sample.Longitude}
	regions, err := s.geofences.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	alerts := []domain.GeofenceAlert{}
	for _, g := range regions {
		if g.ContainsPoint(point) {
			alerts = append(alerts, domain.GeofenceAlert{
				GeofenceID:   g.GeofenceID,
				GeofenceName: g.Name,
				ClientID:     g.ClientID,
				AlertType:    "entered",
			})
		}
	}

	s.cacheActive(ctx, sample)

	// Lazy reverse geocoding: best effort, a single pass, never fails the
	// update.
	if sample.Address == "" {
		if res, err := s.geocoder.CoordinatesToAddress(ctx, sample.Latitude, sample.Longitude, 5*time.Second, 1); err == nil && res != nil {
			sample.Address = res.FormattedAddress
			if err := s.locations.UpdateAddress(ctx, sample.LocationID, res.FormattedAddress); err != nil {
				s.logger.Warn("failed to patch resolved address", zap.Error(err))
			} else {
				s.cacheActive(ctx, sample)
			}
		}
	}

	s.audit.Record(userID, "location_updated", "location", sample.LocationID, map[string]any{
		"latitude":        sample.Latitude,
		"longitude":       sample.Longitude,
		"geofence_alerts": alerts,
	})

	return sample, alerts, nil
}

// Current returns the user's active sample, served from the Redis cache
// when fresh and falling through to the repository on a miss.
func (s *LocationService) Current(ctx context.Context, userID string) (*domain.LocationSample, error) {
	if cached, err := s.cache.Get(ctx, activeLocationKeyPrefix+userID); err == nil {
		var sample domain.LocationSample
		if jsonErr := json.Unmarshal([]byte(cached), &sample); jsonErr == nil {
			return &sample, nil
		}
	} else if err != store.ErrMiss {
		s.logger.Warn("active location cache read failed", zap.Error(err))
	}

	sample, err := s.locations.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cacheActive(ctx, sample)
	return sample, nil
}

// History returns location samples, newest first. Callers without a
// manager/admin role are always scoped to their own samples.
func (s *LocationService) History(ctx context.Context, callerID string, f domain.LocationHistoryFilter) ([]*domain.LocationSample, error) {
	role, err := s.users.RoleName(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !domain.CanReadOthers(role) {
		f.UserID = callerID
	} else if f.UserID == "" {
		f.UserID = callerID
	}
	return s.locations.History(ctx, f)
}

func (s *LocationService) cacheActive(ctx context.Context, sample *domain.LocationSample) {
	payload, err := json.Marshal(sample)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, activeLocationKeyPrefix+sample.UserID, string(payload), activeLocationTTL); err != nil {
		s.logger.Warn("active location cache write failed", zap.Error(err))
	}
}
