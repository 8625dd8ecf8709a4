package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geocoding"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
)

func newGeofenceService(geocoder Geocoder) (*GeofenceService, *repository.MemoryGeofencesRepo) {
	repo := repository.NewMemoryGeofencesRepo()
	if geocoder == nil {
		geocoder = &fakeGeocoder{}
	}
	return NewGeofenceService(repo, geocoder, NopAuditSink{}, zap.NewNop()), repo
}

func TestCreateGeofenceDefaults(t *testing.T) {
	svc, _ := newGeofenceService(nil)

	g, err := svc.CreateGeofence(context.Background(), &domain.Geofence{
		ClientID:     "client-1",
		Name:         "Residence",
		CenterLat:    40.0,
		CenterLng:    -73.0,
		RadiusMeters: 100,
		CreatedBy:    "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GeofenceCircle, g.Kind, "kind defaults to circle")
	assert.True(t, g.IsActive)
	assert.NotEmpty(t, g.GeofenceID)
}

func TestCreateGeofenceValidation(t *testing.T) {
	svc, _ := newGeofenceService(nil)
	ctx := context.Background()
	var ve *domain.ValidationError

	_, err := svc.CreateGeofence(ctx, &domain.Geofence{ClientID: "c", CreatedBy: "a"})
	assert.ErrorAs(t, err, &ve, "name required")

	_, err = svc.CreateGeofence(ctx, &domain.Geofence{
		ClientID: "c", Name: "n", Kind: domain.GeofenceCircle, RadiusMeters: 0, CreatedBy: "a",
	})
	assert.ErrorAs(t, err, &ve, "radius must be positive")

	_, err = svc.CreateGeofence(ctx, &domain.Geofence{
		ClientID: "c", Name: "n", Kind: domain.GeofencePolygon, CreatedBy: "a",
		Polygon: []geo.Point{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}},
	})
	assert.ErrorAs(t, err, &ve, "polygon needs three vertices")

	_, err = svc.CreateGeofence(ctx, &domain.Geofence{
		ClientID: "c", Name: "n", Kind: domain.GeofencePolygon, CreatedBy: "a",
		Polygon: []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}},
	})
	assert.ErrorAs(t, err, &ve, "duplicate vertices do not count")
}

func TestEvaluatePoint(t *testing.T) {
	svc, _ := newGeofenceService(nil)
	ctx := context.Background()

	circle, err := svc.CreateGeofence(ctx, &domain.Geofence{
		ClientID: "client-1", Name: "Residence", Kind: domain.GeofenceCircle,
		CenterLat: 40.7580, CenterLng: -73.9855, RadiusMeters: 100, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	inside, err := svc.EvaluatePoint(ctx, "client-1", geo.Point{Lat: 40.7580, Lng: -73.9855})
	require.NoError(t, err)
	assert.True(t, inside.Inside)
	assert.Equal(t, []string{circle.GeofenceID}, inside.Matched)
	assert.InDelta(t, 0, inside.NearestDistanceMeters, 1e-6)

	outside, err := svc.EvaluatePoint(ctx, "client-1", geo.Point{Lat: 40.7680, Lng: -73.9855})
	require.NoError(t, err)
	assert.False(t, outside.Inside)
	assert.Empty(t, outside.Matched)
	assert.Greater(t, outside.NearestDistanceMeters, 100.0, "distance reported even when outside")
}

func TestEvaluatePointNoGeofences(t *testing.T) {
	svc, _ := newGeofenceService(nil)

	eval, err := svc.EvaluatePoint(context.Background(), "client-1", geo.Point{Lat: 0, Lng: 0})
	require.NoError(t, err)
	assert.False(t, eval.Inside)
	assert.True(t, math.IsNaN(eval.NearestDistanceMeters))
}

func TestEvaluatePointPolygon(t *testing.T) {
	svc, _ := newGeofenceService(nil)
	ctx := context.Background()

	_, err := svc.CreateGeofence(ctx, &domain.Geofence{
		ClientID: "client-1", Name: "Yard", Kind: domain.GeofencePolygon, CreatedBy: "admin-1",
		Polygon: []geo.Point{
			{Lat: 40.0, Lng: -73.0},
			{Lat: 40.0, Lng: -72.0},
			{Lat: 41.0, Lng: -72.0},
			{Lat: 41.0, Lng: -73.0},
		},
	})
	require.NoError(t, err)

	eval, err := svc.EvaluatePoint(ctx, "client-1", geo.Point{Lat: 40.5, Lng: -72.5})
	require.NoError(t, err)
	assert.True(t, eval.Inside)

	eval, err = svc.EvaluatePoint(ctx, "client-1", geo.Point{Lat: 42.0, Lng: -72.5})
	require.NoError(t, err)
	assert.False(t, eval.Inside)
}

func TestDeactivateGeofence(t *testing.T) {
	svc, _ := newGeofenceService(nil)
	ctx := context.Background()

	g, err := svc.CreateGeofence(ctx, &domain.Geofence{
		ClientID: "client-1", Name: "Residence", Kind: domain.GeofenceCircle,
		CenterLat: 40.0, CenterLng: -73.0, RadiusMeters: 100, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, "admin-1", g.GeofenceID))

	active, err := svc.ListActiveByClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// soft delete: the row is still readable
	got, err := svc.Get(ctx, g.GeofenceID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeriveHomeGeofenceFromCoordinates(t *testing.T) {
	svc, _ := newGeofenceService(nil)
	clients := repository.NewMemoryClientsRepo()

	lat, lng := 40.7580, -73.9855
	client := &domain.Client{ClientID: "client-1", Name: "Ada Lovelace", Latitude: &lat, Longitude: &lng}
	require.NoError(t, clients.Create(context.Background(), client))

	g, err := svc.DeriveHomeGeofence(context.Background(), clients, client, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Ada Lovelace Residence", g.Name)
	assert.Equal(t, domain.GeofenceCircle, g.Kind)
	assert.Equal(t, domain.DefaultHomeRadiusMeters, g.RadiusMeters)
	assert.Equal(t, lat, g.CenterLat)
}

func TestDeriveHomeGeofenceGeocodesAddress(t *testing.T) {
	geocoder := &fakeGeocoder{forward: &geocoding.Result{Latitude: 39.7817, Longitude: -89.6501, Provider: "nominatim"}}
	svc, _ := newGeofenceService(geocoder)
	clients := repository.NewMemoryClientsRepo()

	client := &domain.Client{ClientID: "client-1", Name: "Grace Hopper", Address: "123 Main st, Springfield"}
	require.NoError(t, clients.Create(context.Background(), client))

	g, err := svc.DeriveHomeGeofence(context.Background(), clients, client, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.InDelta(t, 39.7817, g.CenterLat, 1e-6)

	// coordinates are written back to the client
	stored, err := clients.Get(context.Background(), "client-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Latitude)
	assert.InDelta(t, 39.7817, *stored.Latitude, 1e-6)
}

func TestDeriveHomeGeofenceUnresolvedAddress(t *testing.T) {
	svc, _ := newGeofenceService(&fakeGeocoder{}) // always ErrUnresolved
	clients := repository.NewMemoryClientsRepo()

	client := &domain.Client{ClientID: "client-1", Name: "N", Address: "not a real place"}
	require.NoError(t, clients.Create(context.Background(), client))

	g, err := svc.DeriveHomeGeofence(context.Background(), clients, client, "admin-1")
	assert.NoError(t, err, "unresolved address is not an error")
	assert.Nil(t, g)
}

func TestDeriveHomeGeofenceNothingToDeriveFrom(t *testing.T) {
	svc, _ := newGeofenceService(nil)
	clients := repository.NewMemoryClientsRepo()

	client := &domain.Client{ClientID: "client-1", Name: "N"}
	require.NoError(t, clients.Create(context.Background(), client))

	g, err := svc.DeriveHomeGeofence(context.Background(), clients, client, "admin-1")
	assert.NoError(t, err)
	assert.Nil(t, g)
}
