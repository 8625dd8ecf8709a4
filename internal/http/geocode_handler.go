package httpapi

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geocoding"
	"github.com/NoJuanNobody/home-health-aid-app/internal/service"
)

// GeocodeHandler 地理编码接口
// Responses follow the {success, data} / {success:false, error} envelope so
// unresolved addresses read as an expected outcome rather than a server fault.
type GeocodeHandler struct {
	geocoder service.Geocoder
	logger   *zap.Logger
}

func NewGeocodeHandler(geocoder service.Geocoder, logger *zap.Logger) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder, logger: logger}
}

type geocodeAddressRequest struct {
	Address    string `json:"address"`
	TimeoutSec int    `json:"timeout,omitempty"`
	MaxRetries int    `json:"max_retries,omitempty"`
}

type geocodeCoordinatesRequest struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	TimeoutSec int     `json:"timeout,omitempty"`
	MaxRetries int     `json:"max_retries,omitempty"`
}

type geocodeDistanceRequest struct {
	Lat1 float64 `json:"lat1"`
	Lon1 float64 `json:"lon1"`
	Lat2 float64 `json:"lat2"`
	Lon2 float64 `json:"lon2"`
}

func writeGeocodeSuccess(w http.ResponseWriter, res *geocoding.Result) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"latitude":          res.Latitude,
			"longitude":         res.Longitude,
			"formatted_address": res.FormattedAddress,
			"provider":          res.Provider,
		},
	})
}

func writeGeocodeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// Address handles POST /api/v1/geocode/address
func (h *GeocodeHandler) Address(w http.ResponseWriter, r *http.Request) {
	var req geocodeAddressRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeGeocodeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Address == "" {
		writeGeocodeFailure(w, http.StatusBadRequest, "address is required")
		return
	}

	res, err := h.geocoder.AddressToCoordinates(r.Context(),
		req.Address, time.Duration(req.TimeoutSec)*time.Second, req.MaxRetries)
	if err != nil {
		if errors.Is(err, geocoding.ErrUnresolved) {
			writeGeocodeFailure(w, http.StatusNotFound, "address could not be resolved")
			return
		}
		writeError(w, err)
		return
	}
	writeGeocodeSuccess(w, res)
}

// Coordinates handles POST /api/v1/geocode/coordinates (reverse geocoding)
func (h *GeocodeHandler) Coordinates(w http.ResponseWriter, r *http.Request) {
	var req geocodeCoordinatesRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeGeocodeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !geo.ValidateCoordinates(req.Latitude, req.Longitude) {
		writeGeocodeFailure(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	res, err := h.geocoder.CoordinatesToAddress(r.Context(),
		req.Latitude, req.Longitude, time.Duration(req.TimeoutSec)*time.Second, req.MaxRetries)
	if err != nil {
		if errors.Is(err, geocoding.ErrUnresolved) {
			writeGeocodeFailure(w, http.StatusNotFound, "coordinates could not be resolved")
			return
		}
		writeError(w, err)
		return
	}
	writeGeocodeSuccess(w, res)
}

// Distance handles POST /api/v1/geocode/distance
func (h *GeocodeHandler) Distance(w http.ResponseWriter, r *http.Request) {
	var req geocodeDistanceRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}
	if !geo.ValidateCoordinates(req.Lat1, req.Lon1) || !geo.ValidateCoordinates(req.Lat2, req.Lon2) {
		writeError(w, domain.NewValidationError("coordinates", "out of range"))
		return
	}

	meters := h.geocoder.DistanceBetween(
		geo.Point{Lat: req.Lat1, Lng: req.Lon1},
		geo.Point{Lat: req.Lat2, Lng: req.Lon2},
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"distance_meters": meters,
		"distance_km":     meters / 1000.0,
	})
}
