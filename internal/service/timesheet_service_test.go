package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
	"github.com/NoJuanNobody/home-health-aid-app/internal/repository"
)

type timesheetFixture struct {
	svc       *TimesheetService
	geofences *GeofenceService
	users     *repository.MemoryUsersRepo
	now       time.Time
}

func newTimesheetFixture(t *testing.T) *timesheetFixture {
	t.Helper()
	geofencesRepo := repository.NewMemoryGeofencesRepo()
	users := repository.NewMemoryUsersRepo()
	geofenceSvc := NewGeofenceService(geofencesRepo, &fakeGeocoder{}, NopAuditSink{}, zap.NewNop())

	f := &timesheetFixture{
		geofences: geofenceSvc,
		users:     users,
		now:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewTimesheetService(repository.NewMemoryTimesheetsRepo(), geofenceSvc, users, NopAuditSink{}, zap.NewNop()).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *timesheetFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *timesheetFixture) addCircleFence(t *testing.T, clientID string, lat, lng, radius float64) {
	t.Helper()
	_, err := f.geofences.CreateGeofence(context.Background(), &domain.Geofence{
		ClientID:     clientID,
		Name:         "Residence",
		Kind:         domain.GeofenceCircle,
		CenterLat:    lat,
		CenterLng:    lng,
		RadiusMeters: radius,
		CreatedBy:    "admin-1",
	})
	require.NoError(t, err)
}

func TestOpenShift(t *testing.T) {
	f := newTimesheetFixture(t)

	ts, err := f.svc.OpenShift(context.Background(), "user-1", "client-1", f.now, "morning shift")
	require.NoError(t, err)
	assert.NotEmpty(t, ts.TimesheetID)
	assert.Equal(t, domain.TimesheetPending, ts.Status)
	assert.Nil(t, ts.ClockInAt)
}

func TestOpenShiftValidation(t *testing.T) {
	f := newTimesheetFixture(t)

	_, err := f.svc.OpenShift(context.Background(), "", "client-1", f.now, "")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.OpenShift(context.Background(), "user-1", "", f.now, "")
	assert.ErrorAs(t, err, &ve)
}

func TestOpenShiftConflictWithActive(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	// a second shift for the same pair while one is active
	_, err = f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)

	// a different client is fine
	_, err = f.svc.OpenShift(ctx, "user-1", "client-2", f.now, "")
	assert.NoError(t, err)
}

func TestClockInSecondPendingShiftConflicts(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	// two pending shifts for the same pair may coexist
	first, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	second, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, "user-1", first.TimesheetID, nil)
	require.NoError(t, err)

	// but only one of them may transition to active
	_, err = f.svc.ClockIn(ctx, "user-1", second.TimesheetID, nil)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)

	active, err := f.svc.List(ctx, "user-1", domain.TimesheetFilter{Status: domain.TimesheetActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, first.TimesheetID, active[0].TimesheetID)
}

func TestClockInWithoutGeofence(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	// no geofence on file: the location is accepted without a presence check
	ts, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, &domain.LocationSnapshot{Latitude: 40.0, Longitude: -73.0})
	require.NoError(t, err)
	assert.Equal(t, domain.TimesheetActive, ts.Status)
	require.NotNil(t, ts.ClockInAt)
	assert.Equal(t, f.now, *ts.ClockInAt)
}

func TestClockInInsideGeofence(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()
	f.addCircleFence(t, "client-1", 40.7580, -73.9855, 100)

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	ts, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, &domain.LocationSnapshot{Latitude: 40.7580, Longitude: -73.9855})
	require.NoError(t, err)
	assert.Equal(t, domain.TimesheetActive, ts.Status)
}

func TestClockInOutsideGeofence(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()
	f.addCircleFence(t, "client-1", 40.7580, -73.9855, 100)

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	// ~111 m north of center
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, &domain.LocationSnapshot{Latitude: 40.7590, Longitude: -73.9855})
	var oge *domain.OutsideGeofenceError
	require.ErrorAs(t, err, &oge)
	assert.Greater(t, oge.NearestDistanceMeters, 100.0)
	assert.Less(t, oge.NearestDistanceMeters, 120.0)
}

func TestClockInBoundaryIsInside(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	center := geoPoint(40.7580, -73.9855)
	edge := geoPoint(40.7589, -73.9855)
	f.addCircleFence(t, "client-1", center.Lat, center.Lng, (&fakeGeocoder{}).DistanceBetween(center, edge))

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	// distance == radius: boundary counts as inside
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, &domain.LocationSnapshot{Latitude: edge.Lat, Longitude: edge.Lng})
	assert.NoError(t, err)
}

func TestClockInTwiceConflicts(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestClockInOthersTimesheetDenied(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, "user-2", ts.TimesheetID, nil)
	var ade *domain.AccessDeniedError
	assert.ErrorAs(t, err, &ade)
}

func TestClockOutComputesHours(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	f.advance(8 * time.Hour)
	ts, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TimesheetCompleted, ts.Status)
	assert.Equal(t, 8.0, ts.TotalHours)
	assert.Equal(t, 0.0, ts.OvertimeHours, "exactly at the threshold is not overtime")
}

func TestClockOutOvertime(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	f.advance(9 * time.Hour)
	ts, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	assert.Equal(t, 9.0, ts.TotalHours)
	assert.Equal(t, 1.0, ts.OvertimeHours)
}

func TestClockOutConflicts(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	// not clocked in yet
	_, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)

	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)
	_, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	// already clocked out
	_, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	assert.ErrorAs(t, err, &ce)
}

func TestBreaksDeductedFromHours(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	f.advance(4 * time.Hour)
	b, err := f.svc.StartBreak(ctx, "user-1", ts.TimesheetID, domain.BreakTypeLunch, "")
	require.NoError(t, err)

	f.advance(30 * time.Minute)
	b, err = f.svc.EndBreak(ctx, "user-1", ts.TimesheetID, b.BreakID)
	require.NoError(t, err)
	assert.Equal(t, 30, b.DurationMinutes)

	f.advance(4 * time.Hour)
	ts, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	assert.Equal(t, 8.0, ts.TotalHours)
	assert.Equal(t, 0.0, ts.OvertimeHours)
}

func TestOpenBreakContributesNothing(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	b, err := f.svc.StartBreak(ctx, "user-1", ts.TimesheetID, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.BreakTypeBreak, b.Kind, "default kind")

	f.advance(2 * time.Hour)
	ts, err = f.svc.ClockOut(ctx, "user-1", ts.TimesheetID, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, ts.TotalHours, "open break is not deducted yet")

	// closing the break after clock-out recomputes the totals
	_, err = f.svc.EndBreak(ctx, "user-1", ts.TimesheetID, b.BreakID)
	require.NoError(t, err)

	f.users.SetRole("manager-1", domain.RoleManager)
	ts, err = f.svc.Get(ctx, "manager-1", ts.TimesheetID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, ts.TotalHours)
}

func TestStartBreakInvalidKind(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	_, err = f.svc.StartBreak(ctx, "user-1", ts.TimesheetID, "nap", "")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestEndBreakTwiceConflicts(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	b, err := f.svc.StartBreak(ctx, "user-1", ts.TimesheetID, "", "")
	require.NoError(t, err)

	f.advance(10 * time.Minute)
	_, err = f.svc.EndBreak(ctx, "user-1", ts.TimesheetID, b.BreakID)
	require.NoError(t, err)

	_, err = f.svc.EndBreak(ctx, "user-1", ts.TimesheetID, b.BreakID)
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestApproveRequiresManager(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, "user-1", ts.TimesheetID)
	var ade *domain.AccessDeniedError
	require.ErrorAs(t, err, &ade)

	f.users.SetRole("manager-1", domain.RoleManager)
	approved, err := f.svc.Approve(ctx, "manager-1", ts.TimesheetID)
	require.NoError(t, err)
	assert.Equal(t, domain.TimesheetApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "manager-1", *approved.ApprovedBy)
}

func TestRejectRecordsReason(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()
	f.users.SetRole("manager-1", domain.RoleManager)

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, "manager-1", ts.TimesheetID, "hours do not match schedule")
	require.NoError(t, err)
	assert.Equal(t, domain.TimesheetRejected, rejected.Status)
	assert.Equal(t, "Rejected: hours do not match schedule", rejected.Notes)
}

func TestTerminalTimesheetIsImmutable(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()
	f.users.SetRole("manager-1", domain.RoleManager)

	ts, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, "manager-1", ts.TimesheetID)
	require.NoError(t, err)

	var ce *domain.ConflictError
	_, err = f.svc.ClockIn(ctx, "user-1", ts.TimesheetID, nil)
	assert.ErrorAs(t, err, &ce)
	_, err = f.svc.StartBreak(ctx, "user-1", ts.TimesheetID, "", "")
	assert.ErrorAs(t, err, &ce)
	_, err = f.svc.Approve(ctx, "manager-1", ts.TimesheetID)
	assert.ErrorAs(t, err, &ce)
}

func TestListScopedToCaller(t *testing.T) {
	f := newTimesheetFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenShift(ctx, "user-1", "client-1", f.now, "")
	require.NoError(t, err)
	_, err = f.svc.OpenShift(ctx, "user-2", "client-1", f.now, "")
	require.NoError(t, err)

	own, err := f.svc.List(ctx, "user-1", domain.TimesheetFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "user-1", own[0].UserID)

	f.users.SetRole("manager-1", domain.RoleManager)
	all, err := f.svc.List(ctx, "manager-1", domain.TimesheetFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
