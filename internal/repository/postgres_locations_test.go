package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

func setupMockLocationsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresLocationsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresLocationsRepo(db)
}

func TestRecordActiveTransaction(t *testing.T) {
	db, mock, repo := setupMockLocationsDB(t)
	defer db.Close()

	userID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE locations SET is_active = FALSE`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO locations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &domain.LocationSample{
		UserID:    userID,
		Latitude:  40.7580,
		Longitude: -73.9855,
		Timestamp: time.Now().UTC(),
	}
	err := repo.RecordActive(context.Background(), s)
	require.NoError(t, err)
	assert.NotEmpty(t, s.LocationID)
	assert.True(t, s.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordActiveRollsBackOnInsertFailure(t *testing.T) {
	db, mock, repo := setupMockLocationsDB(t)
	defer db.Close()

	userID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE locations SET is_active = FALSE`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO locations`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s := &domain.LocationSample{UserID: userID, Latitude: 1, Longitude: 2, Timestamp: time.Now().UTC()}
	err := repo.RecordActive(context.Background(), s)
	require.Error(t, err)
	assert.False(t, s.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveNotFound(t *testing.T) {
	db, mock, repo := setupMockLocationsDB(t)
	defer db.Close()

	userID := uuid.New().String()
	mock.ExpectQuery(`SELECT`).WithArgs(userID).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActive(context.Background(), userID)
	var nfe *domain.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestHistoryAppliesFilters(t *testing.T) {
	db, mock, repo := setupMockLocationsDB(t)
	defer db.Close()

	userID := uuid.New().String()
	now := time.Now()
	start := now.Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"location_id", "user_id", "latitude", "longitude",
		"accuracy", "altitude", "speed", "heading", "address",
		"timestamp", "is_active", "created_at",
	}).AddRow(
		uuid.New().String(), userID, 40.0, -73.0,
		nil, nil, nil, nil, "somewhere",
		now, true, now,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(userID, start, 50).
		WillReturnRows(rows)

	samples, err := repo.History(context.Background(), domain.LocationHistoryFilter{
		UserID:    userID,
		StartDate: &start,
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "somewhere", samples[0].Address)
	assert.Nil(t, samples[0].Accuracy)
	require.NoError(t, mock.ExpectationsWereMet())
}
