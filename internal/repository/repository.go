package repository

import (
	"context"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

// --- Geofences ---

type GeofencesRepo interface {
	Create(ctx context.Context, g *domain.Geofence) error
	Get(ctx context.Context, geofenceID string) (*domain.Geofence, error)
	// ListActiveByClient returns all active regions bound to one client.
	ListActiveByClient(ctx context.Context, clientID string) ([]*domain.Geofence, error)
	// ListActive returns every active region system-wide (location pings are
	// evaluated against all of them, not one client's).
	ListActive(ctx context.Context) ([]*domain.Geofence, error)
	Update(ctx context.Context, g *domain.Geofence) error
	// Deactivate soft-deletes (is_active=false); rows stay for audit history.
	Deactivate(ctx context.Context, geofenceID string) error
}

// --- Locations ---

type LocationsRepo interface {
	// RecordActive deactivates the user's previous active sample and inserts
	// the new one as active, atomically with respect to concurrent updates
	// from the same user.
	RecordActive(ctx context.Context, s *domain.LocationSample) error
	GetActive(ctx context.Context, userID string) (*domain.LocationSample, error)
	History(ctx context.Context, f domain.LocationHistoryFilter) ([]*domain.LocationSample, error)
	// UpdateAddress patches the lazily resolved address on one sample.
	UpdateAddress(ctx context.Context, locationID, address string) error
}

// --- Timesheets ---

type TimesheetsRepo interface {
	// CreateIfNoActive inserts the timesheet only if the (user, client) pair
	// has no active one; returns domain.ConflictError otherwise. The check
	// and insert are atomic (conditional insert, not read-then-write).
	CreateIfNoActive(ctx context.Context, t *domain.Timesheet) error
	// Get loads the timesheet with its break intervals.
	Get(ctx context.Context, timesheetID string) (*domain.Timesheet, error)
	Update(ctx context.Context, t *domain.Timesheet) error
	List(ctx context.Context, f domain.TimesheetFilter) ([]*domain.Timesheet, error)
	AddBreak(ctx context.Context, b *domain.BreakInterval) error
	GetBreak(ctx context.Context, timesheetID, breakID string) (*domain.BreakInterval, error)
	UpdateBreak(ctx context.Context, b *domain.BreakInterval) error
}

// --- Clients ---

type ClientsRepo interface {
	Create(ctx context.Context, c *domain.Client) error
	Get(ctx context.Context, clientID string) (*domain.Client, error)
	UpdateCoordinates(ctx context.Context, clientID string, lat, lng float64) error
}

// --- Users (consumed identity collaborator) ---

// UsersRepo is the narrow slice of the external identity system this service
// consumes: id → role name, for read-scope gating.
type UsersRepo interface {
	RoleName(ctx context.Context, userID string) (string, error)
}
