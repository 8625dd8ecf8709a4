package geo

import (
	"math"
	"strconv"
	"strings"
)

// Point 经纬度坐标 (latitude/longitude in decimal degrees)
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WGS-84 ellipsoid parameters
const (
	wgs84A = 6378137.0         // semi-major axis (meters)
	wgs84B = 6356752.314245    // semi-minor axis (meters)
	wgs84F = 1 / 298.257223563 // flattening
)

// DistanceMeters returns the geodesic distance between two points in meters,
// computed with the Vincenty inverse formula on the WGS-84 ellipsoid.
// Geofence radii are on the order of 100m, so a spherical approximation
// (haversine) is not accurate enough; this matches reference geodesy
// libraries to well under a meter at those scales.
func DistanceMeters(p1, p2 Point) float64 {
	if p1.Lat == p2.Lat && p1.Lng == p2.Lng {
		return 0
	}

	phi1 := p1.Lat * math.Pi / 180
	phi2 := p2.Lat * math.Pi / 180
	L := (p2.Lng - p1.Lng) * math.Pi / 180

	U1 := math.Atan((1 - wgs84F) * math.Tan(phi1))
	U2 := math.Atan((1 - wgs84F) * math.Tan(phi2))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	var sinSigma, cosSigma, sigma, sinAlpha, cosSqAlpha, cos2SigmaM float64
	for i := 0; i < 200; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt(math.Pow(cosU2*sinLambda, 2) +
			math.Pow(cosU1*sinU2-sinU1*cosU2*cosLambda, 2))
		if sinSigma == 0 {
			return 0 // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			cos2SigmaM = 0 // equatorial line
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		C := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = L + (1-C)*wgs84F*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-lambdaPrev) < 1e-12 {
			break
		}
		// Near-antipodal pairs may not converge; the last iterate is still a
		// usable value and such inputs never occur at geofence scales.
	}

	uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := B * sinSigma * (cos2SigmaM + B/4*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return wgs84B * A * (sigma - deltaSigma)
}

// PointInCircle reports whether point lies within radiusMeters of center.
// The boundary is inclusive: a point exactly at the radius is inside.
func PointInCircle(point, center Point, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}

// PointInPolygon reports whether point lies inside the polygon described by
// vertices (an open ring, longitude as the x-axis, latitude as the y-axis),
// using the even-odd ray casting rule. Fewer than 3 vertices always yields
// false. Boundary points follow the crossing rule and are deterministic for
// a given point: a point on the minimum-longitude edge of a rectangle tests
// inside, one on the maximum-longitude edge tests outside.
func PointInPolygon(point Point, vertices []Point) bool {
	if len(vertices) < 3 {
		return false
	}
	x, y := point.Lng, point.Lat
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		xi, yi := vertices[i].Lng, vertices[i].Lat
		xj, yj := vertices[j].Lng, vertices[j].Lat
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Centroid returns the vertex centroid of a ring. Used as the polygon's
// reference point for nearest-distance diagnostics.
func Centroid(vertices []Point) Point {
	if len(vertices) == 0 {
		return Point{}
	}
	var lat, lng float64
	for _, v := range vertices {
		lat += v.Lat
		lng += v.Lng
	}
	n := float64(len(vertices))
	return Point{Lat: lat / n, Lng: lng / n}
}

// ValidateCoordinates reports whether lat/lng form a valid coordinate pair
// (-90..90, -180..180). Inputs may be numeric types or numeric strings;
// anything non-numeric or out of range yields false, never an error.
func ValidateCoordinates(lat, lng any) bool {
	latF, ok := toFloat(lat)
	if !ok {
		return false
	}
	lngF, ok := toFloat(lng)
	if !ok {
		return false
	}
	return latF >= -90 && latF <= 90 && lngF >= -180 && lngF <= 180
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
