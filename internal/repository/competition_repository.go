package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

const competitionColumns = `id, name, track, region, level, year, lead_department_id, valid_until, created_by, created_at, updated_at`

// CompetitionRepository manages competition persistence.
type CompetitionRepository struct {
	db *sqlx.DB
}

// NewCompetitionRepository constructs the repository.
func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

// FindByID fetches a competition.
func (r *CompetitionRepository) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions WHERE id = $1`
	var comp models.Competition
	if err := database.Conn(ctx, r.db).GetContext(ctx, &comp, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find competition: %w", err)
	}
	return &comp, nil
}

// List returns competitions filtered and paginated, newest year first.
func (r *CompetitionRepository) List(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, int, error) {
	base := ` FROM competitions WHERE 1=1`
	var args []interface{}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		base += fmt.Sprintf(" AND level = $%d", len(args))
	}
	if filter.Region != nil {
		args = append(args, *filter.Region)
		base += fmt.Sprintf(" AND region = $%d", len(args))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		base += fmt.Sprintf(" AND year = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(track) LIKE $%d)", len(args), len(args))
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s%s ORDER BY year DESC, level ASC, name ASC LIMIT %d OFFSET %d", competitionColumns, base, size, models.Offset(page, size))

	conn := database.Conn(ctx, r.db)
	var items []models.Competition
	if err := conn.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list competitions: %w", err)
	}
	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count competitions: %w", err)
	}
	return items, total, nil
}

// Create inserts a competition.
func (r *CompetitionRepository) Create(ctx context.Context, comp *models.Competition) error {
	if comp.ID == "" {
		comp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if comp.CreatedAt.IsZero() {
		comp.CreatedAt = now
	}
	comp.UpdatedAt = now
	const query = `INSERT INTO competitions (id, name, track, region, level, year, lead_department_id, valid_until, created_by, created_at, updated_at)
VALUES (:id, :name, :track, :region, :level, :year, :lead_department_id, :valid_until, :created_by, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, comp); err != nil {
		return fmt.Errorf("create competition: %w", err)
	}
	return nil
}

// Update writes every mutable column.
func (r *CompetitionRepository) Update(ctx context.Context, comp *models.Competition) error {
	comp.UpdatedAt = time.Now().UTC()
	const query = `UPDATE competitions SET name = :name, track = :track, region = :region, level = :level, year = :year,
lead_department_id = :lead_department_id, valid_until = :valid_until, updated_at = :updated_at WHERE id = :id`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, comp); err != nil {
		return fmt.Errorf("update competition: %w", err)
	}
	return nil
}

// Delete removes a competition.
func (r *CompetitionRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete competition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasApplications reports whether any application references the competition.
func (r *CompetitionRepository) HasApplications(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM applications WHERE competition_id = $1)`
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check competition applications: %w", err)
	}
	return exists, nil
}
