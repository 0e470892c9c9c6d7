package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/models"
)

func TestApplicationExistsActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE teacher_id = $1 AND competition_id = $2 AND status <> $3 AND id <> $4)")).
		WithArgs("t1", "c1", models.StatusRejected, "a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsActive(context.Background(), "t1", "c1", "a1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationTransitionStatusLosesRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $3, updated_at = $4, submitted_at = COALESCE($5, submitted_at) WHERE id = $1 AND status = $2")).
		WithArgs("a1", models.StatusPendingSchool, models.StatusApproved, now, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionStatus(context.Background(), "a1", models.StatusPendingSchool, models.StatusApproved, now, nil)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationReplaceStudentsKeepsOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM application_students WHERE application_id = $1")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO application_students").
		WithArgs("a1", "s2", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO application_students").
		WithArgs("a1", "s1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.ReplaceStudents(context.Background(), "a1", []string{"s2", "s1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationListPendingOrdersBySubmission(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	status := models.StatusPendingDepartment
	cols := []string{"id", "competition_id", "teacher_id", "co_teacher_id", "department_id", "status", "submitted_at", "created_at", "updated_at", "competition_name", "competition_level", "teacher_name"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND a.status = $1 AND a.department_id = $2 ORDER BY a.submitted_at ASC LIMIT 20 OFFSET 0")).
		WithArgs(status, "d1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", "c1", "t1", nil, "d1", string(status), now, now, now, "Olympiad", "B", "Ana"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM applications a WHERE 1=1 AND a.status = $1 AND a.department_id = $2")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	apps, total, err := repo.List(context.Background(), models.ApplicationFilter{Status: &status, DepartmentID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, apps, 1)
	assert.Equal(t, models.LevelB, apps[0].CompetitionLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreateApprovalRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO approval_records").WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &models.ApprovalRecord{SubjectID: "a1", ApproverID: "d1", Stage: models.StageDepartment, Action: models.ActionApprove, FromStatus: models.StatusPendingDepartment, ToStatus: models.StatusPendingSchool}
	require.NoError(t, repo.CreateApprovalRecord(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationDeleteDraftOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE id = $1 AND status = $2")).
		WithArgs("a1", models.StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteDraft(context.Background(), "a1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
