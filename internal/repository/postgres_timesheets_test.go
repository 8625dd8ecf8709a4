package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

func setupMockTimesheetsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresTimesheetsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresTimesheetsRepo(db)
}

func pendingTimesheet() *domain.Timesheet {
	return &domain.Timesheet{
		UserID:   uuid.New().String(),
		ClientID: uuid.New().String(),
		WorkDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:   domain.TimesheetPending,
	}
}

func TestCreateIfNoActiveInserts(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO timesheets`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ts := pendingTimesheet()
	err := repo.CreateIfNoActive(context.Background(), ts)
	require.NoError(t, err)
	assert.NotEmpty(t, ts.TimesheetID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIfNoActiveZeroRowsIsConflict(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	// the conditional insert matched an existing active row: nothing inserted
	mock.ExpectExec(`INSERT INTO timesheets`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CreateIfNoActive(context.Background(), pendingTimesheet())
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestCreateIfNoActiveUniqueViolationIsConflict(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	// the partial unique index caught a concurrent insert
	mock.ExpectExec(`INSERT INTO timesheets`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateIfNoActive(context.Background(), pendingTimesheet())
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestGetTimesheetLoadsBreaks(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	timesheetID := uuid.New().String()
	userID := uuid.New().String()
	clientID := uuid.New().String()
	now := time.Now()
	clockIn := now.Add(-8 * time.Hour)

	tsRows := sqlmock.NewRows([]string{
		"timesheet_id", "user_id", "client_id", "work_date",
		"clock_in_at", "clock_out_at", "clock_in_location", "clock_out_location",
		"total_hours", "overtime_hours", "status", "notes",
		"approved_by", "approved_at", "created_at", "updated_at",
	}).AddRow(
		timesheetID, userID, clientID, now,
		clockIn, now, []byte(`{"latitude":40.758,"longitude":-73.9855}`), nil,
		7.5, 0.0, "completed", "",
		nil, nil, now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(timesheetID).WillReturnRows(tsRows)

	breakRows := sqlmock.NewRows([]string{
		"break_id", "timesheet_id", "start_time", "end_time",
		"break_type", "duration_minutes", "notes", "created_at", "updated_at",
	}).AddRow(
		uuid.New().String(), timesheetID, clockIn.Add(4*time.Hour), clockIn.Add(4*time.Hour+30*time.Minute),
		"lunch", 30, "", now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(timesheetID).WillReturnRows(breakRows)

	ts, err := repo.Get(context.Background(), timesheetID)
	require.NoError(t, err)
	assert.Equal(t, "completed", ts.Status)
	assert.Equal(t, 7.5, ts.TotalHours)
	require.NotNil(t, ts.ClockInLocation)
	assert.InDelta(t, 40.758, ts.ClockInLocation.Latitude, 1e-6)
	require.Len(t, ts.Breaks, 1)
	assert.Equal(t, "lunch", ts.Breaks[0].Kind)
	assert.Equal(t, 30, ts.Breaks[0].DurationMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTimesheetNotFound(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	timesheetID := uuid.New().String()
	mock.ExpectQuery(`SELECT`).WithArgs(timesheetID).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), timesheetID)
	var nfe *domain.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestUpdateActiveTransitionBlockedIsConflict(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	ts := pendingTimesheet()
	ts.TimesheetID = uuid.New().String()
	ts.Status = domain.TimesheetActive

	// the NOT EXISTS guard found a sibling active row: nothing updated
	mock.ExpectExec(`UPDATE timesheets`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), ts)
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestUpdateActiveUniqueViolationIsConflict(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	ts := pendingTimesheet()
	ts.TimesheetID = uuid.New().String()
	ts.Status = domain.TimesheetActive

	// the partial unique index caught a concurrent transition
	mock.ExpectExec(`UPDATE timesheets`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Update(context.Background(), ts)
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
}

func TestUpdateTimesheetNotFound(t *testing.T) {
	db, mock, repo := setupMockTimesheetsDB(t)
	defer db.Close()

	ts := pendingTimesheet()
	ts.TimesheetID = uuid.New().String()

	mock.ExpectExec(`UPDATE timesheets`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), ts)
	var nfe *domain.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}
