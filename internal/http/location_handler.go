package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/service"
)

// LocationHandler 位置上报与查询接口
type LocationHandler struct {
	locations *service.LocationService
	logger    *zap.Logger
}

func NewLocationHandler(locations *service.LocationService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

type recordLocationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Address   string   `json:"address,omitempty"`
}

type locationResponse struct {
	LocationID string   `json:"location_id"`
	UserID     string   `json:"user_id"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Altitude   *float64 `json:"altitude,omitempty"`
	Speed      *float64 `json:"speed,omitempty"`
	Heading    *float64 `json:"heading,omitempty"`
	Address    string   `json:"address,omitempty"`
	Timestamp  string   `json:"timestamp"`
	IsActive   bool     `json:"is_active"`
}

func toLocationResponse(s *domain.LocationSample) locationResponse {
	return locationResponse{
		LocationID: s.LocationID,
		UserID:     s.UserID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Accuracy:   s.Accuracy,
		Altitude:   s.Altitude,
		Speed:      s.Speed,
		Heading:    s.Heading,
		Address:    s.Address,
		Timestamp:  s.Timestamp.UTC().Format(time.RFC3339),
		IsActive:   s.IsActive,
	}
}

type geofenceAlertResponse struct {
	GeofenceID   string `json:"geofence_id"`
	GeofenceName string `json:"geofence_name"`
	ClientID     string `json:"client_id"`
	AlertType    string `json:"alert_type"`
}

// Record handles POST /api/v1/location
func (h *LocationHandler) Record(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req recordLocationRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	sample := &domain.LocationSample{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Altitude:  req.Altitude,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Address:   req.Address,
	}

	stored, alerts, err := h.locations.Record(r.Context(), caller, sample)
	if err != nil {
		writeError(w, err)
		return
	}

	alertsOut := make([]geofenceAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		alertsOut = append(alertsOut, geofenceAlertResponse{
			GeofenceID:   a.GeofenceID,
			GeofenceName: a.GeofenceName,
			ClientID:     a.ClientID,
			AlertType:    a.AlertType,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"location":        toLocationResponse(stored),
		"geofence_alerts": alertsOut,
	})
}

// Current handles GET /api/v1/location/current
func (h *LocationHandler) Current(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	sample, err := h.locations.Current(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"location": toLocationResponse(sample)})
}

// History handles GET /api/v1/location/history
func (h *LocationHandler) History(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	q := r.URL.Query()
	filter := domain.LocationHistoryFilter{
		UserID: q.Get("user_id"),
		Limit:  parseInt(q.Get("limit"), 100),
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, domain.NewValidationError("start_date", "must be RFC3339"))
			return
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, domain.NewValidationError("end_date", "must be RFC3339"))
			return
		}
		filter.EndDate = &t
	}

	samples, err := h.locations.History(r.Context(), caller, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]locationResponse, 0, len(samples))
	for _, s := range samples {
		out = append(out, toLocationResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": out,
		"count":     len(out),
	})
}
