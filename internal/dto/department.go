package dto

// DepartmentRequest creates or replaces a department.
type DepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"omitempty,max=20,alphanum"`
}
