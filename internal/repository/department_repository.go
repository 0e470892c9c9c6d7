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

const departmentSelect = `SELECT d.id, d.name, d.code, d.created_at,
(SELECT COUNT(*) FROM users u WHERE u.department_id = d.id AND u.role = $1 AND u.active = TRUE) AS teacher_count
FROM departments d`

// DepartmentRepository persists the department reference table.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns every department ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &departments, departmentSelect+` ORDER BY d.name`, models.RoleTeacher); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByID returns one department.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	var department models.Department
	if err := database.Conn(ctx, r.db).GetContext(ctx, &department, departmentSelect+` WHERE d.id = $2`, models.RoleTeacher, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &department, nil
}

// Create inserts a department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	if department.CreatedAt.IsZero() {
		department.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, name, code, created_at) VALUES (:id, :name, :code, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update renames a department. sql.ErrNoRows means it does not exist.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE departments SET name = $2, code = $3 WHERE id = $1`, department.ID, department.Name, department.Code)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return expectOneRow(res, "update department")
}

// Delete removes a department. Foreign keys reject departments still in use.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return expectOneRow(res, "delete department")
}

func expectOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
