package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/service"
)

// TimesheetHandler 工时单接口
type TimesheetHandler struct {
	timesheets *service.TimesheetService
	logger     *zap.Logger
}

func NewTimesheetHandler(timesheets *service.TimesheetService, logger *zap.Logger) *TimesheetHandler {
	return &TimesheetHandler{timesheets: timesheets, logger: logger}
}

type openShiftRequest struct {
	ClientID string `json:"client_id"`
	WorkDate string `json:"work_date"` // YYYY-MM-DD; defaults to today
	Notes    string `json:"notes,omitempty"`
}

type clockRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

func (req *clockRequest) snapshot() *domain.LocationSnapshot {
	if req.Latitude == nil || req.Longitude == nil {
		return nil
	}
	return &domain.LocationSnapshot{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Address:   req.Address,
	}
}

type startBreakRequest struct {
	Kind  string `json:"break_type,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

type breakResponse struct {
	BreakID         string  `json:"break_id"`
	TimesheetID     string  `json:"timesheet_id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time,omitempty"`
	Kind            string  `json:"break_type"`
	DurationMinutes int     `json:"duration_minutes"`
	Notes           string  `json:"notes,omitempty"`
}

func toBreakResponse(b *domain.BreakInterval) breakResponse {
	out := breakResponse{
		BreakID:         b.BreakID,
		TimesheetID:     b.TimesheetID,
		StartTime:       b.StartTime.UTC().Format(time.RFC3339),
		Kind:            b.Kind,
		DurationMinutes: b.DurationMinutes,
		Notes:           b.Notes,
	}
	if b.EndTime != nil {
		s := b.EndTime.UTC().Format(time.RFC3339)
		out.EndTime = &s
	}
	return out
}

type timesheetResponse struct {
	TimesheetID      string                   `json:"timesheet_id"`
	UserID           string                   `json:"user_id"`
	ClientID         string                   `json:"client_id"`
	WorkDate         string                   `json:"work_date"`
	ClockInAt        *string                  `json:"clock_in_at,omitempty"`
	ClockOutAt       *string                  `json:"clock_out_at,omitempty"`
	ClockInLocation  *domain.LocationSnapshot `json:"clock_in_location,omitempty"`
	ClockOutLocation *domain.LocationSnapshot `json:"clock_out_location,omitempty"`
	TotalHours       float64                  `json:"total_hours"`
	OvertimeHours    float64                  `json:"overtime_hours"`
	Status           string                   `json:"status"`
	Notes            string                   `json:"notes,omitempty"`
	ApprovedBy       *string                  `json:"approved_by,omitempty"`
	Breaks           []breakResponse          `json:"breaks"`
}

func toTimesheetResponse(t *domain.Timesheet) timesheetResponse {
	out := timesheetResponse{
		TimesheetID:      t.TimesheetID,
		UserID:           t.UserID,
		ClientID:         t.ClientID,
		WorkDate:         t.WorkDate.Format("2006-01-02"),
		ClockInLocation:  t.ClockInLocation,
		ClockOutLocation: t.ClockOutLocation,
		TotalHours:       t.TotalHours,
		OvertimeHours:    t.OvertimeHours,
		Status:           t.Status,
		Notes:            t.Notes,
		ApprovedBy:       t.ApprovedBy,
		Breaks:           make([]breakResponse, 0, len(t.Breaks)),
	}
	if t.ClockInAt != nil {
		s := t.ClockInAt.UTC().Format(time.RFC3339)
		out.ClockInAt = &s
	}
	if t.ClockOutAt != nil {
		s := t.ClockOutAt.UTC().Format(time.RFC3339)
		out.ClockOutAt = &s
	}
	for _, b := range t.Breaks {
		out.Breaks = append(out.Breaks, toBreakResponse(b))
	}
	return out
}

// Open handles POST /api/v1/timesheets
func (h *TimesheetHandler) Open(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req openShiftRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	workDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.WorkDate != "" {
		d, err := time.Parse("2006-01-02", req.WorkDate)
		if err != nil {
			writeError(w, domain.NewValidationError("work_date", "must be YYYY-MM-DD"))
			return
		}
		workDate = d
	}

	ts, err := h.timesheets.OpenShift(r.Context(), caller, req.ClientID, workDate, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"timesheet": toTimesheetResponse(ts)})
}

// List handles GET /api/v1/timesheets
func (h *TimesheetHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	q := r.URL.Query()
	filter := domain.TimesheetFilter{
		UserID:   q.Get("user_id"),
		ClientID: q.Get("client_id"),
		Status:   q.Get("status"),
	}
	if v := q.Get("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, domain.NewValidationError("start_date", "must be YYYY-MM-DD"))
			return
		}
		filter.StartDate = &d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, domain.NewValidationError("end_date", "must be YYYY-MM-DD"))
			return
		}
		filter.EndDate = &d
	}

	sheets, err := h.timesheets.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]timesheetResponse, 0, len(sheets))
	for _, t := range sheets {
		out = append(out, toTimesheetResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timesheets": out,
		"count":      len(out),
	})
}

// Get handles GET /api/v1/timesheets/{id}
func (h *TimesheetHandler) Get(w http.ResponseWriter, r *http.Request, timesheetID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}
	ts, err := h.timesheets.Get(r.Context(), caller, timesheetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timesheet": toTimesheetResponse(ts)})
}

// ClockIn handles POST /api/v1/timesheets/{id}/clock-in
func (h *TimesheetHandler) ClockIn(w http.ResponseWriter, r *http.Request, timesheetID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req clockRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	ts, err := h.timesheets.ClockIn(r.Context(), caller, timesheetID, req.snapshot())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timesheet": toTimesheetResponse(ts)})
}

// ClockOut handles POST /api/v1/timesheets/{id}/clock-out
func (h *TimesheetHandler) ClockOut(w http.ResponseWriter, r *http.Request, timesheetID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req clockRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	ts, err := h.timesheets.ClockOut(r.Context(), caller, timesheetID, req.snapshot())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timesheet": toTimesheetResponse(ts)})
}

// StartBreak handles POST /api/v1/timesheets/{id}/breaks
func (h *TimesheetHandler) StartBreak(w http.ResponseWriter, r *http.Request, timesheetID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req startBreakRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	b, err := h.timesheets.StartBreak(r.Context(), caller, timesheetID, req.Kind, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"break": toBreakResponse(b)})
}

// EndBreak handles POST /api/v1/timesheets/{id}/breaks/{bid}/end
func (h *TimesheetHandler) EndBreak(w http.ResponseWriter, r *http.Request, timesheetID, breakID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	b, err := h.timesheets.EndBreak(r.Context(), caller, timesheetID, breakID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"break": toBreakResponse(b)})
}

// Approve handles POST /api/v1/timesheets/{id}/approve
func (h *TimesheetHandler) Approve(w http.ResponseWriter, r *http.Request, timesheetID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	ts, err := h.timesheets.Approve(r.Context(), caller, timesheetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timesheet": toTimesheetResponse(ts)})
}

// Reject handles POST /api/v1/timesheets/{id}/reject
func (h *TimesheetHandler) Reject(w http.ResponseWriter, r *http.Request, timesheetID string) {
	caller := callerID(r)
	if caller == "" {
		writeUnauthorized(w)
		return
	}

	var req rejectRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	ts, err := h.timesheets.Reject(r.Context(), caller, timesheetID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timesheet": toTimesheetResponse(ts)})
}
