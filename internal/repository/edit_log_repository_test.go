package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/models"
)

func TestCreateUserInfoLogsOneRowPerField(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEditLogRepository(db)

	mock.ExpectExec("INSERT INTO user_info_edit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_info_edit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	logs := []models.UserInfoEditLog{
		{UserID: "u1", FieldName: "name", OldValue: "A", NewValue: "B", Penalty: 1},
		{UserID: "u1", FieldName: "bank_account", OldValue: "***", NewValue: "***", Penalty: 1},
	}
	require.NoError(t, repo.CreateUserInfoLogs(context.Background(), logs))
	assert.NotEmpty(t, logs[0].ID)
	assert.NotEqual(t, logs[0].ID, logs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserInfoLogsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEditLogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC LIMIT 10")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "field_name", "old_value", "new_value", "penalty", "created_at"}))

	logs, err := repo.ListUserInfoLogs(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
