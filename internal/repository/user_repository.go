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
	"github.com/lib/pq"

	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/database"
)

const userColumns = `id, employee_id, password_hash, name, gender, bank_account, bank_name, role, department_id, performance_score, monthly_edit_count, last_edit_month, active, last_login, created_at, updated_at`

// UserRepository provides database access for user management and the performance score.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmployeeID returns a user by login id.
func (r *UserRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE employee_id = $1 LIMIT 1`
	var user models.User
	if err := database.Conn(ctx, r.db).GetContext(ctx, &user, query, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by employee id: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := database.Conn(ctx, r.db).GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByIDs loads several users at once; missing ids are simply absent from the result.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	var users []models.User
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	return users, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// AdjustPerformanceScore adds delta to the user's score in a single statement and
// returns the new balance. With floorAtZero the row is only touched when the
// result stays non-negative; otherwise sql.ErrNoRows is returned.
func (r *UserRepository) AdjustPerformanceScore(ctx context.Context, id string, delta float64, floorAtZero bool, at time.Time) (float64, error) {
	query := `UPDATE users SET performance_score = performance_score + $2, updated_at = $3 WHERE id = $1`
	if floorAtZero {
		query += ` AND performance_score + $2 >= 0`
	}
	query += ` RETURNING performance_score`

	var balance float64
	if err := database.Conn(ctx, r.db).GetContext(ctx, &balance, query, id, delta, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("adjust performance score: %w", err)
	}
	return balance, nil
}

// UpdateProfile writes the self-service fields and the edit quota. The write only
// applies when the stored quota still matches expectCount/expectMonth, so two
// concurrent edits cannot both consume the same free slot.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate, expectCount int, expectMonth *string, at time.Time) error {
	const query = `UPDATE users SET name = $2, gender = $3, bank_account = $4, bank_name = $5, monthly_edit_count = $6, last_edit_month = $7, updated_at = $8
WHERE id = $1 AND monthly_edit_count = $9 AND last_edit_month IS NOT DISTINCT FROM $10`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id,
		update.Name, update.Gender, update.BankAccount, update.BankName,
		update.MonthlyEditCount, update.LastEditMonth, at, expectCount, expectMonth)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, *filter.DepartmentID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(employee_id) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"employee_id":       true,
		"name":              true,
		"created_at":        true,
		"performance_score": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, models.Offset(page, pageSize))

	conn := database.Conn(ctx, r.db)
	var users []models.User
	if err := conn.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// RankByDepartment orders a department's teachers by performance score.
func (r *UserRepository) RankByDepartment(ctx context.Context, departmentID string, page, pageSize int) ([]models.RankingEntry, int, error) {
	page, pageSize = models.NormalizePage(page, pageSize)
	query := fmt.Sprintf(`SELECT id, employee_id, name, performance_score FROM users
WHERE department_id = $1 AND role = $2 AND active = TRUE
ORDER BY performance_score DESC, name ASC LIMIT %d OFFSET %d`, pageSize, models.Offset(page, pageSize))

	conn := database.Conn(ctx, r.db)
	var entries []models.RankingEntry
	if err := conn.SelectContext(ctx, &entries, query, departmentID, models.RoleTeacher); err != nil {
		return nil, 0, fmt.Errorf("rank department: %w", err)
	}
	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE department_id = $1 AND role = $2 AND active = TRUE`, departmentID, models.RoleTeacher); err != nil {
		return nil, 0, fmt.Errorf("count department ranking: %w", err)
	}
	offset := models.Offset(page, pageSize)
	for i := range entries {
		entries[i].Rank = offset + i + 1
	}
	return entries, total, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, employee_id, password_hash, name, gender, bank_account, bank_name, role, department_id, performance_score, monthly_edit_count, active, created_at, updated_at)
VALUES (:id, :employee_id, :password_hash, :name, :gender, :bank_account, :bank_name, :role, :department_id, :performance_score, :monthly_edit_count, :active, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates administrative fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, role = :role, department_id = :department_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
