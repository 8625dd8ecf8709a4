package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

type PostgresLocationsRepo struct {
	db *sql.DB
}

func NewPostgresLocationsRepo(db *sql.DB) *PostgresLocationsRepo {
	return &PostgresLocationsRepo{db: db}
}

const locationColumns = `
	location_id::text,
	user_id::text,
	latitude,
	longitude,
	accuracy,
	altitude,
	speed,
	heading,
	COALESCE(address, ''),
	timestamp,
	is_active,
	created_at`

// RecordActive runs deactivate-then-insert in one transaction. The UPDATE on
// the user's active row takes a row lock, so two concurrent updates for the
// same user serialize; updates for different users never contend.
func (r *PostgresLocationsRepo) RecordActive(ctx context.Context, s *domain.LocationSample) error {
	if s.LocationID == "" {
		s.LocationID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin location transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE locations SET is_active = FALSE WHERE user_id = $1 AND is_active = TRUE`,
		s.UserID,
	); err != nil {
		return fmt.Errorf("failed to deactivate previous location: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO locations (
			location_id, user_id, latitude, longitude,
			accuracy, altitude, speed, heading, address,
			timestamp, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, TRUE, NOW())`,
		s.LocationID, s.UserID, s.Latitude, s.Longitude,
		s.Accuracy, s.Altitude, s.Speed, s.Heading, s.Address,
		s.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit location transaction: %w", err)
	}
	s.IsActive = true
	return nil
}

func (r *PostgresLocationsRepo) GetActive(ctx context.Context, userID string) (*domain.LocationSample, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations
		 WHERE user_id = $1 AND is_active = TRUE
		 ORDER BY timestamp DESC LIMIT 1`, userID)
	s, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("active location", userID)
	}
	return s, err
}

func (r *PostgresLocationsRepo) History(ctx context.Context, f domain.LocationHistoryFilter) ([]*domain.LocationSample, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	if f.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, f.UserID)
		argIdx++
	}
	if f.StartDate != nil {
		where += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *f.StartDate)
		argIdx++
	}
	if f.EndDate != nil {
		where += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *f.EndDate)
		argIdx++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM locations
		 WHERE `+where+`
		 ORDER BY timestamp DESC
		 LIMIT $`+fmt.Sprint(argIdx), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.LocationSample{}
	for rows.Next() {
		s, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresLocationsRepo) UpdateAddress(ctx context.Context, locationID, address string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET address = $2 WHERE location_id = $1`,
		locationID, address)
	if err != nil {
		return fmt.Errorf("failed to update location address: %w", err)
	}
	return requireRow(res, "location", locationID)
}

func scanLocation(row rowScanner) (*domain.LocationSample, error) {
	var s domain.LocationSample
	if err := row.Scan(
		&s.LocationID, &s.UserID, &s.Latitude, &s.Longitude,
		&s.Accuracy, &s.Altitude, &s.Speed, &s.Heading, &s.Address,
		&s.Timestamp, &s.IsActive, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
