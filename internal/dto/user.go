package dto

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	EmployeeID   string  `json:"employeeId" validate:"required,max=50"`
	Name         string  `json:"name" validate:"required,max=100"`
	Role         string  `json:"role" validate:"required,oneof=SUPER_ADMIN SCHOOL_ADMIN DEPARTMENT_ADMIN TEACHER"`
	DepartmentID *string `json:"departmentId"`
	Password     string  `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest payload for administrative user updates.
type UpdateUserRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Role         string  `json:"role" validate:"required,oneof=SUPER_ADMIN SCHOOL_ADMIN DEPARTMENT_ADMIN TEACHER"`
	DepartmentID *string `json:"departmentId"`
	Active       *bool   `json:"active"`
}

// UserListQuery captures user list filters.
type UserListQuery struct {
	Role         string `form:"role" validate:"omitempty,oneof=SUPER_ADMIN SCHOOL_ADMIN DEPARTMENT_ADMIN TEACHER"`
	DepartmentID string `form:"departmentId"`
	Search       string `form:"search"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
	SortBy       string `form:"sortBy"`
	SortOrder    string `form:"sortOrder"`
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	StudentNo string `json:"studentNo" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=100"`
	ClassName string `json:"className" validate:"max=50"`
}
