package domain

import "time"

// LocationSample 用户位置上报记录（对应 locations 表）
// Immutable once written, except for the is_active flag: at most one sample
// per user is active at any time, and each new sample deactivates the prior
// one before being inserted.
type LocationSample struct {
	LocationID string `db:"location_id"` // UUID, PRIMARY KEY
	UserID     string `db:"user_id"`     // UUID, NOT NULL

	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`

	// Optional device-reported metadata
	Accuracy *float64 `db:"accuracy"`
	Altitude *float64 `db:"altitude"`
	Speed    *float64 `db:"speed"`
	Heading  *float64 `db:"heading"`

	// Resolved street address, lazily filled via reverse geocoding when the
	// device did not supply one. Best effort; may stay empty.
	Address string `db:"address"`

	Timestamp time.Time `db:"timestamp"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// LocationHistoryFilter narrows History queries.
type LocationHistoryFilter struct {
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
