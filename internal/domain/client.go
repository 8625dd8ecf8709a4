package domain

import "time"

// Client 服务对象（客户）（对应 clients 表）
// Deliberately thin: full client management lives outside this service, but
// client creation drives geocoding and home-geofence derivation, so the
// fields that flow through that pipeline are modeled here.
type Client struct {
	ClientID string `db:"client_id"` // UUID, PRIMARY KEY
	Name     string `db:"name"`      // VARCHAR(200), NOT NULL
	Address  string `db:"address"`   // TEXT, nullable

	// Resolved coordinates; nil until geocoding succeeds.
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// User roles consumed from the identity collaborator. Only the role name is
// needed here, for read-scope gating.
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleCaregiver = "caregiver"
)

// CanReadOthers reports whether a role may query other users' location
// history and timesheets.
func CanReadOthers(role string) bool {
	return role == RoleAdmin || role == RoleManager
}
