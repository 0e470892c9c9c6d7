package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

const applicationSelect = `SELECT a.id, a.competition_id, a.teacher_id, a.co_teacher_id, a.department_id, a.status, a.submitted_at, a.created_at, a.updated_at,
c.name AS competition_name, c.level AS competition_level, u.name AS teacher_name
FROM applications a
JOIN competitions c ON c.id = a.competition_id
JOIN users u ON u.id = a.teacher_id`

// ApplicationRepository persists applications, their rosters and approval history.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// FindByID returns an application joined with competition and teacher names.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := database.Conn(ctx, r.db).GetContext(ctx, &app, applicationSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// ExistsActive reports whether the teacher holds a non-rejected application for
// the competition. excludeID skips the application being resubmitted.
func (r *ApplicationRepository) ExistsActive(ctx context.Context, teacherID, competitionID, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE teacher_id = $1 AND competition_id = $2 AND status <> $3`
	args := []interface{}{teacherID, competitionID, models.StatusRejected}
	if excludeID != "" {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	query += `)`
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check active application: %w", err)
	}
	return exists, nil
}

// Create inserts a new application row.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt
	const query = `INSERT INTO applications (id, competition_id, teacher_id, co_teacher_id, department_id, status, submitted_at, created_at, updated_at)
VALUES (:id, :competition_id, :teacher_id, :co_teacher_id, :department_id, :status, :submitted_at, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateCoTeacher replaces the co-teacher while the application is still editable.
func (r *ApplicationRepository) UpdateCoTeacher(ctx context.Context, id string, coTeacherID *string, at time.Time) error {
	const query = `UPDATE applications SET co_teacher_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, coTeacherID, at); err != nil {
		return fmt.Errorf("update application co-teacher: %w", err)
	}
	return nil
}

// ReplaceStudents swaps the whole roster; callers run it inside a transaction.
func (r *ApplicationRepository) ReplaceStudents(ctx context.Context, applicationID string, studentIDs []string) error {
	conn := database.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `DELETE FROM application_students WHERE application_id = $1`, applicationID); err != nil {
		return fmt.Errorf("clear application students: %w", err)
	}
	now := time.Now().UTC()
	for i, studentID := range studentIDs {
		const insert = `INSERT INTO application_students (application_id, student_id, position, created_at) VALUES ($1, $2, $3, $4)`
		if _, err := conn.ExecContext(ctx, insert, applicationID, studentID, i+1, now); err != nil {
			return fmt.Errorf("insert application student: %w", err)
		}
	}
	return nil
}

// ListStudents returns the roster in submission order.
func (r *ApplicationRepository) ListStudents(ctx context.Context, applicationID string) ([]models.ApplicationStudent, error) {
	const query = `SELECT s_app.application_id, s_app.student_id, s_app.position, s.student_no, s.name, s.class_name
FROM application_students s_app JOIN students s ON s.id = s_app.student_id
WHERE s_app.application_id = $1 ORDER BY s_app.position`
	var rows []models.ApplicationStudent
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application students: %w", err)
	}
	return rows, nil
}

// CountStudents returns the roster size.
func (r *ApplicationRepository) CountStudents(ctx context.Context, applicationID string) (int, error) {
	var n int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &n, `SELECT COUNT(*) FROM application_students WHERE application_id = $1`, applicationID); err != nil {
		return 0, fmt.Errorf("count application students: %w", err)
	}
	return n, nil
}

// TransitionStatus moves the application from one status to another. The update
// is conditional on the current status; sql.ErrNoRows means another writer won.
func (r *ApplicationRepository) TransitionStatus(ctx context.Context, id string, from, to models.ApprovalStatus, at time.Time, submittedAt *time.Time) error {
	const query = `UPDATE applications SET status = $3, updated_at = $4, submitted_at = COALESCE($5, submitted_at) WHERE id = $1 AND status = $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, from, to, at, submittedAt)
	if err != nil {
		return fmt.Errorf("transition application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition application rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDraft removes an application that is still in DRAFT.
func (r *ApplicationRepository) DeleteDraft(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM applications WHERE id = $1 AND status = $2`, id, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateApprovalRecord appends a decision to the application's history.
func (r *ApplicationRepository) CreateApprovalRecord(ctx context.Context, rec *models.ApprovalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_records (id, application_id, approver_id, stage, action, from_status, to_status, comment, created_at)
VALUES (:id, :subject_id, :approver_id, :stage, :action, :from_status, :to_status, :comment, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create approval record: %w", err)
	}
	return nil
}

// ListApprovalRecords returns the history newest first.
func (r *ApplicationRepository) ListApprovalRecords(ctx context.Context, applicationID string) ([]models.ApprovalRecord, error) {
	const query = `SELECT ar.id, ar.application_id AS subject_id, ar.approver_id, ar.stage, ar.action, ar.from_status, ar.to_status, ar.comment, ar.created_at, u.name AS approver_name
FROM approval_records ar JOIN users u ON u.id = ar.approver_id
WHERE ar.application_id = $1 ORDER BY ar.created_at DESC`
	var records []models.ApprovalRecord
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &records, query, applicationID); err != nil {
		return nil, fmt.Errorf("list approval records: %w", err)
	}
	return records, nil
}

// List returns applications matching the filter. Pending queues are ordered by
// submission time, everything else newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.CompetitionID != "" {
		args = append(args, filter.CompetitionID)
		where += fmt.Sprintf(" AND a.competition_id = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where += fmt.Sprintf(" AND a.teacher_id = $%d", len(args))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND a.department_id = $%d", len(args))
	}
	if filter.ParticipantID != "" {
		args = append(args, filter.ParticipantID)
		where += fmt.Sprintf(" AND (a.teacher_id = $%d OR a.co_teacher_id = $%d)", len(args), len(args))
	}

	order := "a.created_at DESC"
	if filter.Status != nil && (*filter.Status == models.StatusPendingDepartment || *filter.Status == models.StatusPendingSchool) {
		order = "a.submitted_at ASC"
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", applicationSelect, where, order, size, models.Offset(page, size))

	conn := database.Conn(ctx, r.db)
	var apps []models.Application
	if err := conn.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications a"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}
