package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes liveness probe
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// RegisterLocationRoutes 位置上报/查询
func (r *Router) RegisterLocationRoutes(h *LocationHandler) {
	r.Handle("/api/v1/location", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Record(w, req)
	})
	r.Handle("/api/v1/location/current", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Current(w, req)
	})
	r.Handle("/api/v1/location/history", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.History(w, req)
	})
}

// RegisterGeofenceRoutes 围栏管理
func (r *Router) RegisterGeofenceRoutes(h *GeofenceHandler) {
	r.Handle("/api/v1/geofences", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.List(w, req)
		case http.MethodPost:
			h.Create(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/api/v1/geofences/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/api/v1/geofences/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.Get(w, req, id)
		case http.MethodPut:
			h.Update(w, req, id)
		case http.MethodDelete:
			h.Delete(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterGeocodeRoutes 地理编码
func (r *Router) RegisterGeocodeRoutes(h *GeocodeHandler) {
	r.Handle("/api/v1/geocode/address", postOnly(h.Address))
	r.Handle("/api/v1/geocode/coordinates", postOnly(h.Coordinates))
	r.Handle("/api/v1/geocode/distance", postOnly(h.Distance))
}

// RegisterClientRoutes 客户创建（含住宅围栏派生）
func (r *Router) RegisterClientRoutes(h *ClientHandler) {
	r.Handle("/api/v1/clients", postOnly(h.Create))
}

// RegisterTimesheetRoutes 工时单
func (r *Router) RegisterTimesheetRoutes(h *TimesheetHandler) {
	r.Handle("/api/v1/timesheets", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.List(w, req)
		case http.MethodPost:
			h.Open(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/api/v1/timesheets/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/timesheets/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Get(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "clock-in":
			requirePost(w, req, func() { h.ClockIn(w, req, parts[0]) })
		case len(parts) == 2 && parts[1] == "clock-out":
			requirePost(w, req, func() { h.ClockOut(w, req, parts[0]) })
		case len(parts) == 2 && parts[1] == "breaks":
			requirePost(w, req, func() { h.StartBreak(w, req, parts[0]) })
		case len(parts) == 4 && parts[1] == "breaks" && parts[3] == "end":
			requirePost(w, req, func() { h.EndBreak(w, req, parts[0], parts[2]) })
		case len(parts) == 2 && parts[1] == "approve":
			requirePost(w, req, func() { h.Approve(w, req, parts[0]) })
		case len(parts) == 2 && parts[1] == "reject":
			requirePost(w, req, func() { h.Reject(w, req, parts[0]) })
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

func requirePost(w http.ResponseWriter, req *http.Request, fn func()) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fn()
}
