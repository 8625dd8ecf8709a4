package domain

import (
	"time"

	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
)

// Geofence kinds
const (
	GeofenceCircle  = "circle"
	GeofencePolygon = "polygon"
)

// DefaultHomeRadiusMeters 客户住宅默认围栏半径
const DefaultHomeRadiusMeters = 100.0

// Geofence 客户住宅电子围栏（对应 geofences 表）
// A circular or polygonal region bound to a client, used to verify caregiver
// presence. Soft-deleted via is_active; rows are never hard-deleted while
// referenced by audit history.
type Geofence struct {
	GeofenceID  string `db:"geofence_id"` // UUID, PRIMARY KEY
	ClientID    string `db:"client_id"`   // UUID, NOT NULL
	Name        string `db:"name"`        // VARCHAR(100), NOT NULL
	Description string `db:"description"` // TEXT, nullable

	Kind string `db:"geofence_type"` // circle | polygon

	// Circle geometry (also the reference point for diagnostics)
	CenterLat    float64 `db:"center_latitude"`
	CenterLng    float64 `db:"center_longitude"`
	RadiusMeters float64 `db:"radius_meters"`

	// Polygon geometry: ordered open ring of >=3 vertices, stored as JSONB
	Polygon []geo.Point `db:"polygon_coordinates"`

	IsActive  bool      `db:"is_active"`
	CreatedBy string    `db:"created_by"` // UUID, NOT NULL
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ContainsPoint reports whether p lies inside this geofence.
func (g *Geofence) ContainsPoint(p geo.Point) bool {
	switch g.Kind {
	case GeofenceCircle:
		return geo.PointInCircle(p, geo.Point{Lat: g.CenterLat, Lng: g.CenterLng}, g.RadiusMeters)
	case GeofencePolygon:
		return geo.PointInPolygon(p, g.Polygon)
	}
	return false
}

// ReferencePoint is the point used for nearest-distance diagnostics:
// the center for circles, the vertex centroid for polygons.
func (g *Geofence) ReferencePoint() geo.Point {
	if g.Kind == GeofencePolygon && len(g.Polygon) > 0 {
		return geo.Centroid(g.Polygon)
	}
	return geo.Point{Lat: g.CenterLat, Lng: g.CenterLng}
}

// Validate checks construction invariants: radius > 0 for circles, at least
// 3 distinct vertices for polygons, coordinates in range.
func (g *Geofence) Validate() error {
	switch g.Kind {
	case GeofenceCircle:
		if !geo.ValidateCoordinates(g.CenterLat, g.CenterLng) {
			return NewValidationError("center", "invalid coordinates")
		}
		if g.RadiusMeters <= 0 {
			return NewValidationError("radius_meters", "must be greater than zero")
		}
	case GeofencePolygon:
		if countDistinct(g.Polygon) < 3 {
			return NewValidationError("polygon_coordinates", "polygon requires at least 3 distinct vertices")
		}
		for _, v := range g.Polygon {
			if !geo.ValidateCoordinates(v.Lat, v.Lng) {
				return NewValidationError("polygon_coordinates", "invalid vertex coordinates")
			}
		}
	default:
		return NewValidationError("geofence_type", "must be circle or polygon")
	}
	return nil
}

func countDistinct(vertices []geo.Point) int {
	seen := make(map[geo.Point]struct{}, len(vertices))
	for _, v := range vertices {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// GeofenceEvaluation is the answer to "is point P inside any of client C's
// active geofences". NearestDistanceMeters is always populated (distance to
// the nearest region's reference point) for diagnostic reporting, even when
// the point is outside everything.
type GeofenceEvaluation struct {
	Inside                bool
	Matched               []string // geofence IDs containing the point
	NearestDistanceMeters float64
}

// GeofenceAlert is emitted when a location sample falls inside an active
// geofence. Only "entered" alerts exist: evaluation is stateless per sample,
// so exits are not detected and repeated samples inside re-report entry.
type GeofenceAlert struct {
	GeofenceID   string `json:"geofence_id"`
	GeofenceName string `json:"geofence_name"`
	ClientID     string `json:"client_id"`
	AlertType    string `json:"alert_type"` // always "entered"
}
