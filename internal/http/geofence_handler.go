package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/service"
)

// GeofenceHandler 电子围栏管理接口
type GeofenceHandler struct {
	geofences *service.GeofenceService
	logger    *zap.Logger
}

func NewGeofenceHandler(geofences *service.GeofenceService, logger *zap.Logger) *GeofenceHandler {
	return &GeofenceHandler{geofences: geofences, logger: logger}
}

type geofenceRequest struct {
	ClientID     string      `json:"client_id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Type         string      `json:"geofence_type"`
	CenterLat    float64     `json:"center_latitude"`
	CenterLng    float64     `json:"center_longitude"`
	RadiusMeters float64     `json:"radius_meters"`
	Polygon      []geo.Point `json:"polygon_coordinates,omitempty"`
}

type geofenceResponse struct {
	GeofenceID   string      `json:"geofence_id"`
	ClientID     string      `json:"client_id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Type         string      `json:"geofence_type"`
	CenterLat    float64     `json:"center_latitude"`
	CenterLng    float64     `json:"center_longitude"`
	RadiusMeters float64     `json:"radius_meters,omitempty"`
	Polygon      []geo.Point `json:"polygon_coordinates,omitempty"`
	IsActive     bool        `json:"is_active"`
	CreatedBy    string      `json:"created_by"`
	CreatedAt    string      `json:"created_at"`
}

func toGeofenceResponse(g *domain.Geofence) geofenceResponse {
	return geofenceResponse{
		GeofenceID:   g.GeofenceID,
		ClientID:     g.ClientID,
		Name:         g.Name,
		Description:  g.Description,
		Type:         g.Kind,
		CenterLat:    g.CenterLat,
		CenterLng:    g.CenterLng,
		RadiusMeters: g.RadiusMeters,
		Polygon:      g.Polygon,
		IsActive:     g.IsActive,
		CreatedBy:    g.CreatedBy,
		CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/geofences
func (h *GeofenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req geofenceRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	g := &domain.Geofence{
		ClientID:     req.ClientID,
		Name:         req.Name,
		Description:  req.Description,
		Kind:         req.Type,
		CenterLat:    req.CenterLat,
		CenterLng:    req.CenterLng,
		RadiusMeters: req.RadiusMeters,
		Polygon:      req.Polygon,
		CreatedBy:    caller,
	}

	created, err := h.geofences.CreateGeofence(r.Context(), g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"geofence": toGeofenceResponse(created)})
}

// List handles GET /api/v1/geofences
func (h *GeofenceHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var (
		fences []*domain.Geofence
		err    error
	)
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		fences, err = h.geofences.ListActiveByClient(r.Context(), clientID)
	} else {
		fences, err = h.geofences.ListActive(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]geofenceResponse, 0, len(fences))
	for _, g := range fences {
		out = append(out, toGeofenceResponse(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geofences": out,
		"count":     len(out),
	})
}

// Get handles GET /api/v1/geofences/{id}
func (h *GeofenceHandler) Get(w http.ResponseWriter, r *http.Request, geofenceID string) {
	if callerID(r) == "" {
		writeUnauthorized(w)
		return
	}
	g, err := h.geofences.Get(r.Context(), geofenceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"geofence": toGeofenceResponse(g)})
}

// Update handles PUT /api/v1/geofences/{id}
func (h *GeofenceHandler) Update(w http.ResponseWriter, r *http.Request, geofenceID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req geofenceRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	g := &domain.Geofence{
		GeofenceID:   geofenceID,
		ClientID:     req.ClientID,
		Name:         req.Name,
		Description:  req.Description,
		Kind:         req.Type,
		CenterLat:    req.CenterLat,
		CenterLng:    req.CenterLng,
		RadiusMeters: req.RadiusMeters,
		Polygon:      req.Polygon,
	}

	updated, err := h.geofences.Update(r.Context(), caller, g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"geofence": toGeofenceResponse(updated)})
}

// Delete handles DELETE /api/v1/geofences/{id} (soft delete)
func (h *GeofenceHandler) Delete(w http.ResponseWriter, r *http.Request, geofenceID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}
	if err := h.geofences.Deactivate(r.Context(), caller, geofenceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "geofence deactivated"})
}
