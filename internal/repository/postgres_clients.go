package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

type PostgresClientsRepo struct {
	db *sql.DB
}

func NewPostgresClientsRepo(db *sql.DB) *PostgresClientsRepo {
	return &PostgresClientsRepo{db: db}
}

func (r *PostgresClientsRepo) Create(ctx context.Context, c *domain.Client) error {
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (client_id, name, address, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW(), NOW())`,
		c.ClientID, c.Name, c.Address, c.Latitude, c.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *PostgresClientsRepo) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	var c domain.Client
	err := r.db.QueryRowContext(ctx, `
		SELECT client_id::text, name, COALESCE(address, ''), latitude, longitude, created_at, updated_at
		FROM clients WHERE client_id = $1`, clientID).
		Scan(&c.ClientID, &c.Name, &c.Address, &c.Latitude, &c.Longitude, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("client", clientID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresClientsRepo) UpdateCoordinates(ctx context.Context, clientID string, lat, lng float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET latitude = $2, longitude = $3, updated_at = NOW() WHERE client_id = $1`,
		clientID, lat, lng)
	if err != nil {
		return fmt.Errorf("failed to update client coordinates: %w", err)
	}
	return requireRow(res, "client", clientID)
}

// PostgresUsersRepo reads the external identity store's users table; only
// the role name is consumed here.
type PostgresUsersRepo struct {
	db *sql.DB
}

func NewPostgresUsersRepo(db *sql.DB) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

func (r *PostgresUsersRepo) RoleName(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE user_id = $1`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", domain.NewNotFoundError("user", userID)
	}
	if err != nil {
		return "", err
	}
	return role, nil
}
