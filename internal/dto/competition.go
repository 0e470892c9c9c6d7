package dto

import "time"

// CreateCompetitionRequest defines payload for creating a competition.
type CreateCompetitionRequest struct {
	Name             string     `json:"name" validate:"required,max=200"`
	Track            string     `json:"track" validate:"max=100"`
	Region           string     `json:"region" validate:"required,oneof=NATIONAL PROVINCIAL SCHOOL"`
	Level            string     `json:"level" validate:"required,oneof=A B C D E"`
	Year             int        `json:"year" validate:"required,min=2000,max=2100"`
	LeadDepartmentID *string    `json:"leadDepartmentId"`
	ValidUntil       *time.Time `json:"validUntil"`
}

// UpdateCompetitionRequest changes only the provided fields. Every changed field
// is logged and costs the editor a penalty.
type UpdateCompetitionRequest struct {
	Name             *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Track            *string    `json:"track" validate:"omitempty,max=100"`
	Region           *string    `json:"region" validate:"omitempty,oneof=NATIONAL PROVINCIAL SCHOOL"`
	Level            *string    `json:"level" validate:"omitempty,oneof=A B C D E"`
	Year             *int       `json:"year" validate:"omitempty,min=2000,max=2100"`
	LeadDepartmentID *string    `json:"leadDepartmentId"`
	ValidUntil       *time.Time `json:"validUntil"`
	ClearValidUntil  bool       `json:"clearValidUntil"`
}

// CompetitionListQuery captures list filters.
type CompetitionListQuery struct {
	Level    string `form:"level" validate:"omitempty,oneof=A B C D E"`
	Region   string `form:"region" validate:"omitempty,oneof=NATIONAL PROVINCIAL SCHOOL"`
	Year     int    `form:"year"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
