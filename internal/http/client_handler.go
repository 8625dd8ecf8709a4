package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/service"
)

// ClientHandler 客户创建接口（含住宅围栏派生）
type ClientHandler struct {
	clients *service.ClientService
	logger  *zap.Logger
}

func NewClientHandler(clients *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

type createClientRequest struct {
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type clientResponse struct {
	ClientID  string   `json:"client_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Create handles POST /api/v1/clients. A geocoding failure never fails the
// create: the response carries geofence_created so the caller can tell.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req createClientRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	c := &domain.Client{
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	result, err := h.clients.Create(r.Context(), caller, c)
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]any{
		"client": clientResponse{
			ClientID:  result.Client.ClientID,
			Name:      result.Client.Name,
			Address:   result.Client.Address,
			Latitude:  result.Client.Latitude,
			Longitude: result.Client.Longitude,
		},
		"geofence_created": result.GeofenceCreated,
	}
	if result.Geofence != nil {
		body["geofence"] = toGeofenceResponse(result.Geofence)
	}
	writeJSON(w, http.StatusCreated, body)
}
