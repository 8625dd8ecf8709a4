package httpapi

import (
	"errors"
	"net/http"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geocoding"
)

// errorBody is the structured error payload every mutating endpoint returns:
// a stable machine-readable code plus a human-readable message.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code              string   `json:"code"`
	Message           string   `json:"message"`
	DistanceToNearest *float64 `json:"distance_to_nearest,omitempty"`
}

// writeError maps the domain error taxonomy onto HTTP statuses in one place.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		conflictErr   *domain.ConflictError
		outsideErr    *domain.OutsideGeofenceError
		deniedErr     *domain.AccessDeniedError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{errorDetail{
			Code: "validation", Message: validationErr.Error(),
		}})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorBody{errorDetail{
			Code: "not_found", Message: notFoundErr.Error(),
		}})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorBody{errorDetail{
			Code: "conflict", Message: conflictErr.Error(),
		}})
	case errors.As(err, &outsideErr):
		d := outsideErr.NearestDistanceMeters
		writeJSON(w, http.StatusBadRequest, errorBody{errorDetail{
			Code:              "outside_geofence",
			Message:           "You must be inside a client geofence to clock in",
			DistanceToNearest: &d,
		}})
	case errors.As(err, &deniedErr):
		writeJSON(w, http.StatusForbidden, errorBody{errorDetail{
			Code: "access_denied", Message: deniedErr.Error(),
		}})
	case errors.Is(err, geocoding.ErrUnresolved):
		writeJSON(w, http.StatusBadRequest, errorBody{errorDetail{
			Code: "geocoding_unresolved", Message: "address could not be resolved",
		}})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{errorDetail{
			Code: "internal", Message: "internal server error",
		}})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{errorDetail{
		Code: "unauthorized", Message: "missing X-User-ID",
	}})
}
