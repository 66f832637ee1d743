package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gearstack/cmms-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func requestColumns() []string {
	return []string{"id", "request_number", "subject", "description", "request_type", "status",
		"equipment_id", "team_id", "technician_id", "scheduled_date", "duration_hours",
		"started_at", "completed_at", "created_by", "created_at", "updated_at"}
}

func TestRequestRepositoryCreateInsertsHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO maintenance_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_status_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	request := &models.MaintenanceRequest{
		RequestNumber: "CR-000001",
		Subject:       "Belt snapped",
		RequestType:   models.RequestTypeCorrective,
		Status:        models.StatusNew,
		EquipmentID:   "eq-1",
		ScheduledDate: time.Now().UTC(),
		CreatedBy:     "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), request, "Request created"))
	require.NotEmpty(t, request.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApplyTransitionIsTransactional(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_status_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	update := models.TransitionUpdate{
		RequestID: "req-1",
		Status:    models.StatusInProgress,
		StartedAt: &now,
		History: models.StatusHistoryEntry{
			RequestID: "req-1",
			Status:    models.StatusInProgress,
			ChangedBy: "user-1",
			ChangedAt: now,
		},
	}
	require.NoError(t, repo.ApplyTransition(context.Background(), update))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApplyTransitionRollsBackOnHistoryFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_status_history")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ApplyTransition(context.Background(), models.TransitionUpdate{
		RequestID: "req-1",
		Status:    models.StatusInProgress,
		History:   models.StatusHistoryEntry{RequestID: "req-1", Status: models.StatusInProgress},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(requestColumns()).
		AddRow("req-1", "CR-000001", "Belt snapped", "", "Corrective", "New",
			"eq-1", nil, nil, now, 0.0, nil, nil, "user-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT r.* FROM maintenance_requests r WHERE")).
		WithArgs("New", "Corrective").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM maintenance_requests r WHERE")).
		WithArgs("New", "Corrective").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{
		Status:      models.StatusNew,
		RequestType: models.RequestTypeCorrective,
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "CR-000001", requests[0].RequestNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCountActiveByEquipment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM maintenance_requests")).
		WithArgs("eq-1", "New", "In Progress").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActiveByEquipment(context.Background(), "eq-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterRepositoryNext(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCounterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO request_counters")).
		WithArgs("CR").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(42))

	value, err := repo.Next(context.Background(), "CR")
	require.NoError(t, err)
	require.Equal(t, int64(42), value)
	require.NoError(t, mock.ExpectationsWereMet())
}
