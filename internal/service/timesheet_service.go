package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
)

// TimesheetService drives the shift state machine:
// pending → active → completed → {approved | rejected}.
type TimesheetService struct {
	timesheets repository.TimesheetsRepo
	geofences  *GeofenceService
	users      repository.UsersRepo
	audit      AuditSink
	logger     *zap.Logger

	// injected clock so the engine is testable at fixed instants
	now func() time.Time
}

func NewTimesheetService(
	timesheets repository.TimesheetsRepo,
	geofences *GeofenceService,
	users repository.UsersRepo,
	audit AuditSink,
	logger *zap.Logger,
) *TimesheetService {
	return &TimesheetService{
		timesheets: timesheets,
		geofences:  geofences,
		users:      users,
		audit:      audit,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Test hook.
func (s *TimesheetService) WithClock(now func() time.Time) *TimesheetService {
	s.now = now
	return s
}

// OpenShift creates a pending timesheet. At most one timesheet per
// (user, client) pair may be active; the conditional insert in the
// repository enforces that atomically.
func (s *TimesheetService) OpenShift(ctx context.Context, userID, clientID string, workDate time.Time, notes string) (*domain.Timesheet, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	if clientID == "" {
		return nil, domain.NewValidationError("client_id", "is required")
	}
	t := &domain.Timesheet{
		UserID:   userID,
		ClientID: clientID,
		WorkDate: workDate,
		Status:   domain.TimesheetPending,
		Notes:    notes,
	}
	if err := s.timesheets.CreateIfNoActive(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(userID, "timesheet_created", "timesheet", t.TimesheetID, map[string]any{
		"client_id": clientID,
		"work_date": workDate.Format("2006-01-02"),
	})
	return t, nil
}

// ClockIn records the shift start. When a location is supplied and the
// client has active geofences, the caregiver must be inside one of them;
// OutsideGeofenceError carries the nearest distance for user feedback. A
// client with zero active geofences clocks in without a presence check.
// The transition to active is conditional in the repository: it conflicts
// while a sibling timesheet for the same (user, client) pair is active.
func (s *TimesheetService) ClockIn(ctx context.Context, callerID, timesheetID string, location *domain.LocationSnapshot) (*domain.Timesheet, error) {
	t, err := s.timesheets.Get(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if t.UserID != callerID {
		return nil, domain.NewAccessDeniedError("timesheet belongs to another caregiver")
	}
	if t.ClockInAt != nil {
		return nil, domain.NewConflictError("already clocked in")
	}
	if t.Terminal() {
		return nil, domain.NewConflictError("timesheet is already " + t.Status)
	}

	if location != nil {
		hasFences, err := s.geofences.HasActiveGeofences(ctx, t.ClientID)
		if err != nil {
			return nil, err
		}
		if hasFences {
			eval, err := s.geofences.EvaluatePoint(ctx, t.ClientID,
				geo.Point{Lat: location.Latitude, Lng: location.Longitude})
			if err != nil {
				return nil, err
			}
			if !eval.Inside {
				return nil, &domain.OutsideGeofenceError{NearestDistanceMeters: eval.NearestDistanceMeters}
			}
		}
	}

	now := s.now()
	t.ClockInAt = &now
	t.ClockInLocation = location
	t.Status = domain.TimesheetActive
	if err := s.timesheets.Update(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(callerID, "clock_in", "timesheet", t.TimesheetID, snapshotDetails(location))
	return t, nil
}

// ClockOut records the shift end and derives total and overtime hours from
// the clock span minus closed break durations.
func (s *TimesheetService) ClockOut(ctx context.Context, callerID, timesheetID string, location *domain.LocationSnapshot) (*domain.Timesheet, error) {
	t, err := s.timesheets.Get(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if t.UserID != callerID {
		return nil, domain.NewAccessDeniedError("timesheet belongs to another caregiver")
	}
	if t.ClockInAt == nil {
		return nil, domain.NewConflictError("not clocked in")
	}
	if t.ClockOutAt != nil {
		return nil, domain.NewConflictError("already clocked out")
	}

	now := s.now()
	t.ClockOutAt = &now
	t.ClockOutLocation = location
	t.Status = domain.TimesheetCompleted
	t.RecomputeHours()
	if err := s.timesheets.Update(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(callerID, "clock_out", "timesheet", t.TimesheetID, snapshotDetails(location))
	return t, nil
}

// StartBreak opens a new break interval on an in-progress shift.
func (s *TimesheetService) StartBreak(ctx context.Context, callerID, timesheetID, kind, notes string) (*domain.BreakInterval, error) {
	t, err := s.timesheets.Get(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if t.UserID != callerID {
		return nil, domain.NewAccessDeniedError("timesheet belongs to another caregiver")
	}
	if t.Terminal() {
		return nil, domain.NewConflictError("timesheet is already " + t.Status)
	}
	if kind == "" {
		kind = domain.BreakTypeBreak
	}
	switch kind {
	case domain.BreakTypeBreak, domain.BreakTypeLunch, domain.BreakTypeOther:
	default:
		return nil, domain.NewValidationError("break_type", "must be break, lunch or other")
	}

	b := &domain.BreakInterval{
		TimesheetID: timesheetID,
		StartTime:   s.now(),
		Kind:        kind,
		Notes:       notes,
	}
	if err := s.timesheets.AddBreak(ctx, b); err != nil {
		return nil, err
	}
	s.audit.Record(callerID, "break_started", "timesheet", timesheetID, map[string]any{
		"break_id":   b.BreakID,
		"break_type": kind,
	})
	return b, nil
}

// EndBreak closes an open break and derives its duration. If the shift was
// already clocked out, totals are recomputed so the closed break is
// deducted.
func (s *TimesheetService) EndBreak(ctx context.Context, callerID, timesheetID, breakID string) (*domain.BreakInterval, error) {
	t, err := s.timesheets.Get(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if t.UserID != callerID {
		return nil, domain.NewAccessDeniedError("timesheet belongs to another caregiver")
	}
	if t.Terminal() {
		return nil, domain.NewConflictError("timesheet is already " + t.Status)
	}
	b, err := s.timesheets.GetBreak(ctx, timesheetID, breakID)
	if err != nil {
		return nil, err
	}
	if b.EndTime != nil {
		return nil, domain.NewConflictError("break already ended")
	}

	b.Close(s.now())
	if err := s.timesheets.UpdateBreak(ctx, b); err != nil {
		return nil, err
	}

	if t.ClockOutAt != nil {
		fresh, err := s.timesheets.Get(ctx, timesheetID)
		if err != nil {
			return nil, err
		}
		fresh.RecomputeHours()
		if err := s.timesheets.Update(ctx, fresh); err != nil {
			return nil, err
		}
	}

	s.audit.Record(callerID, "break_ended", "timesheet", timesheetID, map[string]any{
		"break_id":         breakID,
		"duration_minutes": b.DurationMinutes,
	})
	return b, nil
}

// Approve finalizes a timesheet. Valid from any non-terminal status.
func (s *TimesheetService) Approve(ctx context.Context, approverID, timesheetID string) (*domain.Timesheet, error) {
	return s.finalize(ctx, approverID, timesheetID, domain.TimesheetApproved, "")
}

// Reject finalizes a timesheet with a reason stored in the notes. Computed
// hours are left untouched.
func (s *TimesheetService) Reject(ctx context.Context, approverID, timesheetID, reason string) (*domain.Timesheet, error) {
	return s.finalize(ctx, approverID, timesheetID, domain.TimesheetRejected, reason)
}

func (s *TimesheetService) finalize(ctx context.Context, approverID, timesheetID, status, reason string) (*domain.Timesheet, error) {
	role, err := s.users.RoleName(ctx, approverID)
	if err != nil {
		return nil, err
	}
	if !domain.CanReadOthers(role) {
		return nil, domain.NewAccessDeniedError("only managers may approve or reject timesheets")
	}

	t, err := s.timesheets.Get(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if t.Terminal() {
		return nil, domain.NewConflictError("timesheet is already " + t.Status)
	}

	now := s.now()
	t.Status = status
	t.ApprovedBy = &approverID
	t.ApprovedAt = &now
	if status == domain.TimesheetRejected && reason != "" {
		t.Notes = "Rejected: " + reason
	}
	if err := s.timesheets.Update(ctx, t); err != nil {
		return nil, err
	}
	action := "timesheet_approved"
	if status == domain.TimesheetRejected {
		action = "timesheet_rejected"
	}
	s.audit.Record(approverID, action, "timesheet", timesheetID, map[string]any{"reason": reason})
	return t, nil
}

// Get returns one timesheet with its breaks; non-managers only see their own.
func (s *TimesheetService) Get(ctx context.Context, callerID, timesheetID string) (*domain.Timesheet, error) {
	t, err := s.timesheets.Get(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if t.UserID != callerID {
		role, err := s.users.RoleName(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if !domain.CanReadOthers(role) {
			return nil, domain.NewAccessDeniedError("timesheet belongs to another caregiver")
		}
	}
	return t, nil
}

// List returns timesheets newest first; non-managers are scoped to their own.
func (s *TimesheetService) List(ctx context.Context, callerID string, f domain.TimesheetFilter) ([]*domain.Timesheet, error) {
	role, err := s.users.RoleName(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !domain.CanReadOthers(role) {
		f.UserID = callerID
	}
	return s.timesheets.List(ctx, f)
}

func snapshotDetails(loc *domain.LocationSnapshot) map[string]any {
	if loc == nil {
		return nil
	}
	return map[string]any{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	}
}
