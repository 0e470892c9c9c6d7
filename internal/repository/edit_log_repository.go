package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

// EditLogRepository appends and reads the per-field edit logs.
type EditLogRepository struct {
	db *sqlx.DB
}

// NewEditLogRepository constructs the repository.
func NewEditLogRepository(db *sqlx.DB) *EditLogRepository {
	return &EditLogRepository{db: db}
}

// CreateUserInfoLogs inserts one row per changed profile field.
func (r *EditLogRepository) CreateUserInfoLogs(ctx context.Context, logs []models.UserInfoEditLog) error {
	conn := database.Conn(ctx, r.db)
	now := time.Now().UTC()
	for i := range logs {
		if logs[i].ID == "" {
			logs[i].ID = uuid.NewString()
		}
		if logs[i].CreatedAt.IsZero() {
			logs[i].CreatedAt = now
		}
		const query = `INSERT INTO user_info_edit_logs (id, user_id, field_name, old_value, new_value, penalty, created_at)
VALUES (:id, :user_id, :field_name, :old_value, :new_value, :penalty, :created_at)`
		if _, err := conn.NamedExecContext(ctx, query, logs[i]); err != nil {
			return fmt.Errorf("create user info edit log: %w", err)
		}
	}
	return nil
}

// CreateCompetitionLogs inserts one row per changed competition field.
func (r *EditLogRepository) CreateCompetitionLogs(ctx context.Context, logs []models.CompetitionEditLog) error {
	conn := database.Conn(ctx, r.db)
	now := time.Now().UTC()
	for i := range logs {
		if logs[i].ID == "" {
			logs[i].ID = uuid.NewString()
		}
		if logs[i].CreatedAt.IsZero() {
			logs[i].CreatedAt = now
		}
		const query = `INSERT INTO competition_edit_logs (id, competition_id, editor_id, field_name, old_value, new_value, penalty, created_at)
VALUES (:id, :competition_id, :editor_id, :field_name, :old_value, :new_value, :penalty, :created_at)`
		if _, err := conn.NamedExecContext(ctx, query, logs[i]); err != nil {
			return fmt.Errorf("create competition edit log: %w", err)
		}
	}
	return nil
}

// ListUserInfoLogs returns the latest profile edits for a user.
func (r *EditLogRepository) ListUserInfoLogs(ctx context.Context, userID string, limit int) ([]models.UserInfoEditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, user_id, field_name, old_value, new_value, penalty, created_at FROM user_info_edit_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var logs []models.UserInfoEditLog
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &logs, query, userID); err != nil {
		return nil, fmt.Errorf("list user info edit logs: %w", err)
	}
	return logs, nil
}

// ListCompetitionLogs returns the edit trail of a competition, newest first.
func (r *EditLogRepository) ListCompetitionLogs(ctx context.Context, competitionID string) ([]models.CompetitionEditLog, error) {
	const query = `SELECT id, competition_id, editor_id, field_name, old_value, new_value, penalty, created_at FROM competition_edit_logs WHERE competition_id = $1 ORDER BY created_at DESC`
	var logs []models.CompetitionEditLog
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &logs, query, competitionID); err != nil {
		return nil, fmt.Errorf("list competition edit logs: %w", err)
	}
	return logs, nil
}
