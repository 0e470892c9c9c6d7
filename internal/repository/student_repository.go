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

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by search and class.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := ` FROM students WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(student_no) LIKE $%d)", len(args), len(args))
	}
	if filter.ClassName != "" {
		args = append(args, filter.ClassName)
		base += fmt.Sprintf(" AND class_name = $%d", len(args))
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, student_no, name, class_name, created_at%s ORDER BY class_name, name LIMIT %d OFFSET %d", base, size, models.Offset(page, size))

	conn := database.Conn(ctx, r.db)
	var students []models.Student
	if err := conn.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, student_no, name, class_name, created_at FROM students WHERE id = $1`
	var student models.Student
	if err := database.Conn(ctx, r.db).GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsByStudentNo checks student number uniqueness.
func (r *StudentRepository) ExistsByStudentNo(ctx context.Context, studentNo string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM students WHERE student_no = $1)`
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, studentNo); err != nil {
		return false, fmt.Errorf("check student number: %w", err)
	}
	return exists, nil
}

// ExistingIDs returns the subset of ids that are present.
func (r *StudentRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	const query = `SELECT id FROM students WHERE id = ANY($1)`
	var found []string
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("lookup students: %w", err)
	}
	return found, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, student_no, name, class_name, created_at) VALUES (:id, :student_no, :name, :class_name, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
