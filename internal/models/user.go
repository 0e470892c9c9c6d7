package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin      UserRole = "SUPER_ADMIN"
	RoleSchoolAdmin     UserRole = "SCHOOL_ADMIN"
	RoleDepartmentAdmin UserRole = "DEPARTMENT_ADMIN"
	RoleTeacher         UserRole = "TEACHER"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSchoolAdmin, RoleDepartmentAdmin, RoleTeacher:
		return true
	}
	return false
}

// IsSchoolLevel reports whether the role acts on the whole school.
func (r UserRole) IsSchoolLevel() bool {
	return r == RoleSuperAdmin || r == RoleSchoolAdmin
}

// User represents an application user stored in the users table.
type User struct {
	ID               string     `db:"id" json:"id"`
	EmployeeID       string     `db:"employee_id" json:"employeeId"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Name             string     `db:"name" json:"name"`
	Gender           string     `db:"gender" json:"gender"`
	BankAccount      string     `db:"bank_account" json:"bankAccount"`
	BankName         string     `db:"bank_name" json:"bankName"`
	Role             UserRole   `db:"role" json:"role"`
	DepartmentID     *string    `db:"department_id" json:"departmentId,omitempty"`
	PerformanceScore float64    `db:"performance_score" json:"performanceScore"`
	MonthlyEditCount int        `db:"monthly_edit_count" json:"monthlyEditCount"`
	LastEditMonth    *string    `db:"last_edit_month" json:"lastEditMonth,omitempty"`
	Active           bool       `db:"active" json:"active"`
	LastLogin        *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role         *UserRole
	DepartmentID *string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ProfileUpdate is the set of self-service fields written together with the edit quota.
type ProfileUpdate struct {
	Name             string
	Gender           string
	BankAccount      string
	BankName         string
	MonthlyEditCount int
	LastEditMonth    string
}
