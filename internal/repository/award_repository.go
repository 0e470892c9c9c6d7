package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

const awardSelect = `SELECT w.id, w.application_id, w.award_level, w.certificate_no, w.performance_score, w.workload, w.reward_amount, w.status, w.approved_at, w.created_at, w.updated_at,
a.teacher_id, a.co_teacher_id, a.department_id, c.name AS competition_name, c.level AS competition_level, u.name AS teacher_name
FROM awards w
JOIN applications a ON a.id = w.application_id
JOIN competitions c ON c.id = a.competition_id
JOIN users u ON u.id = a.teacher_id`

// AwardRepository persists award claims and their approval history.
type AwardRepository struct {
	db *sqlx.DB
}

// NewAwardRepository constructs the repository.
func NewAwardRepository(db *sqlx.DB) *AwardRepository {
	return &AwardRepository{db: db}
}

// FindByID returns an award joined with the owning application.
func (r *AwardRepository) FindByID(ctx context.Context, id string) (*models.Award, error) {
	var award models.Award
	if err := database.Conn(ctx, r.db).GetContext(ctx, &award, awardSelect+` WHERE w.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find award: %w", err)
	}
	return &award, nil
}

// ExistsForApplication reports whether the application already has an award.
func (r *AwardRepository) ExistsForApplication(ctx context.Context, applicationID string) (bool, error) {
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM awards WHERE application_id = $1)`, applicationID); err != nil {
		return false, fmt.Errorf("check award for application: %w", err)
	}
	return exists, nil
}

// ExistsCertificate reports whether the certificate number is already used.
func (r *AwardRepository) ExistsCertificate(ctx context.Context, certificateNo string) (bool, error) {
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM awards WHERE certificate_no = $1)`, certificateNo); err != nil {
		return false, fmt.Errorf("check certificate number: %w", err)
	}
	return exists, nil
}

// Create inserts the award with its snapshotted values.
func (r *AwardRepository) Create(ctx context.Context, award *models.Award) error {
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if award.CreatedAt.IsZero() {
		award.CreatedAt = now
	}
	award.UpdatedAt = award.CreatedAt
	const query = `INSERT INTO awards (id, application_id, award_level, certificate_no, performance_score, workload, reward_amount, status, approved_at, created_at, updated_at)
VALUES (:id, :application_id, :award_level, :certificate_no, :performance_score, :workload, :reward_amount, :status, :approved_at, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, award); err != nil {
		return fmt.Errorf("create award: %w", err)
	}
	return nil
}

// TransitionStatus conditionally moves the award between statuses. sql.ErrNoRows
// means the award was no longer in the expected status.
func (r *AwardRepository) TransitionStatus(ctx context.Context, id string, from, to models.ApprovalStatus, at time.Time, approvedAt *time.Time) error {
	const query = `UPDATE awards SET status = $3, updated_at = $4, approved_at = COALESCE($5, approved_at) WHERE id = $1 AND status = $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, from, to, at, approvedAt)
	if err != nil {
		return fmt.Errorf("transition award: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition award rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateApprovalRecord appends to the award's history.
func (r *AwardRepository) CreateApprovalRecord(ctx context.Context, rec *models.ApprovalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO award_approval_records (id, award_id, approver_id, stage, action, from_status, to_status, comment, created_at)
VALUES (:id, :subject_id, :approver_id, :stage, :action, :from_status, :to_status, :comment, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create award approval record: %w", err)
	}
	return nil
}

// ListApprovalRecords returns the award history newest first.
func (r *AwardRepository) ListApprovalRecords(ctx context.Context, awardID string) ([]models.ApprovalRecord, error) {
	const query = `SELECT ar.id, ar.award_id AS subject_id, ar.approver_id, ar.stage, ar.action, ar.from_status, ar.to_status, ar.comment, ar.created_at, u.name AS approver_name
FROM award_approval_records ar JOIN users u ON u.id = ar.approver_id
WHERE ar.award_id = $1 ORDER BY ar.created_at DESC`
	var records []models.ApprovalRecord
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &records, query, awardID); err != nil {
		return nil, fmt.Errorf("list award approval records: %w", err)
	}
	return records, nil
}

// List returns awards matching the filter.
func (r *AwardRepository) List(ctx context.Context, filter models.AwardFilter) ([]models.Award, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND w.status = $%d", len(args))
	}
	if filter.AwardLevel != nil {
		args = append(args, *filter.AwardLevel)
		where += fmt.Sprintf(" AND w.award_level = $%d", len(args))
	}
	if filter.CompetitionLevel != nil {
		args = append(args, *filter.CompetitionLevel)
		where += fmt.Sprintf(" AND c.level = $%d", len(args))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND a.department_id = $%d", len(args))
	}
	if filter.ParticipantID != "" {
		args = append(args, filter.ParticipantID)
		where += fmt.Sprintf(" AND (a.teacher_id = $%d OR a.co_teacher_id = $%d)", len(args), len(args))
	}

	order := "w.created_at DESC"
	if filter.Status != nil && *filter.Status == models.StatusApproved {
		order = "w.approved_at DESC"
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", awardSelect, where, order, size, models.Offset(page, size))

	conn := database.Conn(ctx, r.db)
	var awards []models.Award
	if err := conn.SelectContext(ctx, &awards, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list awards: %w", err)
	}
	countQuery := `SELECT COUNT(*) FROM awards w JOIN applications a ON a.id = w.application_id JOIN competitions c ON c.id = a.competition_id` + where
	var total int
	if err := conn.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count awards: %w", err)
	}
	return awards, total, nil
}

// LatestApproved returns the most recently approved awards.
func (r *AwardRepository) LatestApproved(ctx context.Context, limit int) ([]models.Award, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf("%s WHERE w.status = $1 ORDER BY w.approved_at DESC LIMIT %d", awardSelect, limit)
	var awards []models.Award
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &awards, query, models.StatusApproved); err != nil {
		return nil, fmt.Errorf("latest approved awards: %w", err)
	}
	return awards, nil
}

// CertificateDetails loads the certificate content for each existing id.
// Students are joined in roster order.
func (r *AwardRepository) CertificateDetails(ctx context.Context, ids []string) ([]models.AwardCertificate, error) {
	if len(ids) == 0 {
		return []models.AwardCertificate{}, nil
	}
	const query = `SELECT w.id AS award_id, w.certificate_no, w.award_level, w.status, w.approved_at,
c.name AS competition_name, c.year AS competition_year,
a.teacher_id, t.name AS teacher_name, t.employee_id AS teacher_employee_id,
a.co_teacher_id, co.name AS co_teacher_name, a.department_id, d.name AS department_name,
COALESCE((SELECT string_agg(s.name, ', ' ORDER BY aps.position) FROM application_students aps JOIN students s ON s.id = aps.student_id WHERE aps.application_id = a.id), '') AS students
FROM awards w
JOIN applications a ON a.id = w.application_id
JOIN competitions c ON c.id = a.competition_id
JOIN users t ON t.id = a.teacher_id
LEFT JOIN users co ON co.id = a.co_teacher_id
LEFT JOIN departments d ON d.id = a.department_id
WHERE w.id = ANY($1)
ORDER BY w.approved_at DESC NULLS LAST, w.certificate_no`
	var rows []models.AwardCertificate
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("certificate details: %w", err)
	}
	return rows, nil
}
