package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
)

type PostgresGeofencesRepo struct {
	db *sql.DB
}

func NewPostgresGeofencesRepo(db *sql.DB) *PostgresGeofencesRepo {
	return &PostgresGeofencesRepo{db: db}
}

const geofenceColumns = `
	geofence_id::text,
	client_id::text,
	name,
	COALESCE(description, ''),
	geofence_type,
	center_latitude,
	center_longitude,
	radius_meters,
	polygon_coordinates,
	is_active,
	created_by::text,
	created_at,
	updated_at`

func (r *PostgresGeofencesRepo) Create(ctx context.Context, g *domain.Geofence) error {
	if g.GeofenceID == "" {
		g.GeofenceID = uuid.NewString()
	}
	polygonJSON, err := marshalPolygon(g.Polygon)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO geofences (
			geofence_id, client_id, name, description, geofence_type,
			center_latitude, center_longitude, radius_meters,
			polygon_coordinates, is_active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		g.GeofenceID, g.ClientID, g.Name, g.Description, g.Kind,
		g.CenterLat, g.CenterLng, g.RadiusMeters,
		polygonJSON, g.IsActive, g.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert geofence: %w", err)
	}
	return nil
}

func (r *PostgresGeofencesRepo) Get(ctx context.Context, geofenceID string) (*domain.Geofence, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+geofenceColumns+` FROM geofences WHERE geofence_id = $1`, geofenceID)
	g, err := scanGeofence(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("geofence", geofenceID)
	}
	return g, err
}

func (r *PostgresGeofencesRepo) ListActiveByClient(ctx context.Context, clientID string) ([]*domain.Geofence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+geofenceColumns+` FROM geofences
		 WHERE client_id = $1 AND is_active = TRUE
		 ORDER BY created_at`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGeofences(rows)
}

func (r *PostgresGeofencesRepo) ListActive(ctx context.Context) ([]*domain.Geofence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+geofenceColumns+` FROM geofences
		 WHERE is_active = TRUE
		 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGeofences(rows)
}

func (r *PostgresGeofencesRepo) Update(ctx context.Context, g *domain.Geofence) error {
	polygonJSON, err := marshalPolygon(g.Polygon)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE geofences SET
			name = $2,
			description = NULLIF($3, ''),
			geofence_type = $4,
			center_latitude = $5,
			center_longitude = $6,
			radius_meters = $7,
			polygon_coordinates = $8,
			is_active = $9,
			updated_at = NOW()
		WHERE geofence_id = $1`,
		g.GeofenceID, g.Name, g.Description, g.Kind,
		g.CenterLat, g.CenterLng, g.RadiusMeters, polygonJSON, g.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update geofence: %w", err)
	}
	return requireRow(res, "geofence", g.GeofenceID)
}

func (r *PostgresGeofencesRepo) Deactivate(ctx context.Context, geofenceID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE geofences SET is_active = FALSE, updated_at = NOW() WHERE geofence_id = $1`,
		geofenceID)
	if err != nil {
		return fmt.Errorf("failed to deactivate geofence: %w", err)
	}
	return requireRow(res, "geofence", geofenceID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeofence(row rowScanner) (*domain.Geofence, error) {
	var g domain.Geofence
	var polygonJSON []byte
	if err := row.Scan(
		&g.GeofenceID, &g.ClientID, &g.Name, &g.Description, &g.Kind,
		&g.CenterLat, &g.CenterLng, &g.RadiusMeters,
		&polygonJSON, &g.IsActive, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(polygonJSON) > 0 {
		if err := json.Unmarshal(polygonJSON, &g.Polygon); err != nil {
			return nil, fmt.Errorf("malformed polygon_coordinates on geofence %s: %w", g.GeofenceID, err)
		}
	}
	return &g, nil
}

func collectGeofences(rows *sql.Rows) ([]*domain.Geofence, error) {
	out := []*domain.Geofence{}
	for rows.Next() {
		g, err := scanGeofence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func marshalPolygon(polygon []geo.Point) ([]byte, error) {
	if len(polygon) == 0 {
		return nil, nil // NULL column for circles
	}
	b, err := json.Marshal(polygon)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon: %w", err)
	}
	return b, nil
}

func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError(resource, id)
	}
	return nil
}
