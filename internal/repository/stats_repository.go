package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

// StatsRepository runs the read-only aggregate queries behind the dashboards.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// PerformanceAwards lists approved awards where the user is teacher or co-teacher.
// Co-teachers see half of the snapshotted score and workload.
func (r *StatsRepository) PerformanceAwards(ctx context.Context, userID string) ([]models.PerformanceAward, error) {
	const query = `SELECT w.id AS award_id, c.name AS competition_name, c.level AS competition_level, w.award_level,
(a.teacher_id <> $1) AS is_co_teacher,
CASE WHEN a.teacher_id = $1 THEN w.performance_score ELSE w.performance_score / 2 END AS score,
CASE WHEN a.teacher_id = $1 THEN w.workload ELSE w.workload / 2 END AS workload,
w.approved_at
FROM awards w
JOIN applications a ON a.id = w.application_id
JOIN competitions c ON c.id = a.competition_id
WHERE w.status = $2 AND (a.teacher_id = $1 OR a.co_teacher_id = $1)
ORDER BY w.approved_at DESC`
	var rows []models.PerformanceAward
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, userID, models.StatusApproved); err != nil {
		return nil, fmt.Errorf("performance awards: %w", err)
	}
	return rows, nil
}

// LevelStats aggregates the user's approved awards per competition tier.
func (r *StatsRepository) LevelStats(ctx context.Context, userID string) ([]models.LevelStat, error) {
	const query = `SELECT c.level AS competition_level, COUNT(*) AS count,
COALESCE(SUM(CASE WHEN a.teacher_id = $1 THEN w.performance_score ELSE w.performance_score / 2 END), 0) AS total_score,
COALESCE(SUM(CASE WHEN a.teacher_id = $1 THEN w.workload ELSE w.workload / 2 END), 0) AS total_workload
FROM awards w
JOIN applications a ON a.id = w.application_id
JOIN competitions c ON c.id = a.competition_id
WHERE w.status = $2 AND (a.teacher_id = $1 OR a.co_teacher_id = $1)
GROUP BY c.level ORDER BY c.level`
	var rows []models.LevelStat
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, userID, models.StatusApproved); err != nil {
		return nil, fmt.Errorf("level stats: %w", err)
	}
	return rows, nil
}

// DepartmentStats summarises teacher scores per department.
func (r *StatsRepository) DepartmentStats(ctx context.Context) ([]models.DepartmentStat, error) {
	const query = `SELECT d.id AS department_id, d.name AS department_name, COUNT(u.id) AS teacher_count,
COALESCE(SUM(u.performance_score), 0) AS total_score, COALESCE(AVG(u.performance_score), 0) AS average_score
FROM departments d
LEFT JOIN users u ON u.department_id = d.id AND u.role = $1 AND u.active = TRUE
GROUP BY d.id, d.name ORDER BY total_score DESC, d.name`
	var rows []models.DepartmentStat
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, models.RoleTeacher); err != nil {
		return nil, fmt.Errorf("department stats: %w", err)
	}
	return rows, nil
}

// OverviewCounts returns the school-wide headline numbers.
func (r *StatsRepository) OverviewCounts(ctx context.Context) (*models.SchoolOverview, error) {
	const query = `SELECT
(SELECT COUNT(*) FROM users WHERE role = $1 AND active = TRUE) AS total_teachers,
(SELECT COUNT(*) FROM applications) AS total_applications,
(SELECT COUNT(*) FROM applications WHERE status IN ($2, $3)) + (SELECT COUNT(*) FROM awards WHERE status IN ($2, $3)) AS pending_approvals,
(SELECT COUNT(*) FROM awards WHERE status = $4) AS approved_awards`
	var overview models.SchoolOverview
	if err := database.Conn(ctx, r.db).GetContext(ctx, &overview, query,
		models.RoleTeacher, models.StatusPendingDepartment, models.StatusPendingSchool, models.StatusApproved); err != nil {
		return nil, fmt.Errorf("overview counts: %w", err)
	}
	return &overview, nil
}

// RewardShares returns one row per participant per award approved in year.
// The co-teacher row carries half of the snapshotted reward.
func (r *StatsRepository) RewardShares(ctx context.Context, year int) ([]models.RewardShare, error) {
	const query = `SELECT u.id AS user_id, u.employee_id, u.name, u.bank_name, u.bank_account, w.reward_amount AS amount, FALSE AS is_co_teacher
FROM awards w JOIN applications a ON a.id = w.application_id JOIN users u ON u.id = a.teacher_id
WHERE w.status = $1 AND EXTRACT(YEAR FROM w.approved_at) = $2
UNION ALL
SELECT u.id AS user_id, u.employee_id, u.name, u.bank_name, u.bank_account, w.reward_amount / 2 AS amount, TRUE AS is_co_teacher
FROM awards w JOIN applications a ON a.id = w.application_id JOIN users u ON u.id = a.co_teacher_id
WHERE w.status = $1 AND EXTRACT(YEAR FROM w.approved_at) = $2`
	var rows []models.RewardShare
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, models.StatusApproved, year); err != nil {
		return nil, fmt.Errorf("reward shares: %w", err)
	}
	return rows, nil
}

// CompetitionCounts groups the competition catalogue by column, optionally
// restricted to one year. column is one of level, region or year.
func (r *StatsRepository) CompetitionCounts(ctx context.Context, column string, year *int) ([]models.CountBy, error) {
	switch column {
	case "level", "region", "year":
	default:
		return nil, fmt.Errorf("competition counts: unsupported column %q", column)
	}
	query := fmt.Sprintf(`SELECT %s::text AS key, COUNT(*) AS count FROM competitions`, column)
	var args []interface{}
	if year != nil {
		args = append(args, *year)
		query += ` WHERE year = $1`
	}
	if column == "year" {
		query += ` GROUP BY year ORDER BY year DESC LIMIT 5`
	} else {
		query += fmt.Sprintf(` GROUP BY %s ORDER BY %s`, column, column)
	}
	var rows []models.CountBy
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("competition counts by %s: %w", column, err)
	}
	return rows, nil
}

// AwardLevelCounts counts approved awards per prize tier within scope.
func (r *StatsRepository) AwardLevelCounts(ctx context.Context, scope models.AwardCountScope, year *int) ([]models.CountBy, error) {
	query := `SELECT w.award_level AS key, COUNT(*) AS count
FROM awards w
JOIN applications a ON a.id = w.application_id
JOIN competitions c ON c.id = a.competition_id
WHERE w.status = $1`
	args := []interface{}{models.StatusApproved}
	if scope.ParticipantID != "" {
		args = append(args, scope.ParticipantID)
		query += fmt.Sprintf(" AND (a.teacher_id = $%d OR a.co_teacher_id = $%d)", len(args), len(args))
	}
	if scope.DepartmentID != "" {
		args = append(args, scope.DepartmentID)
		query += fmt.Sprintf(" AND a.department_id = $%d", len(args))
	}
	if year != nil {
		args = append(args, *year)
		query += fmt.Sprintf(" AND c.year = $%d", len(args))
	}
	query += ` GROUP BY w.award_level ORDER BY w.award_level`
	var rows []models.CountBy
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("award level counts: %w", err)
	}
	return rows, nil
}
