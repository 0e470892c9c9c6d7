package dto

import "github.com/noah-isme/competition-approval-api/internal/models"

// UpdateProfileRequest holds the self-service profile fields. Nil or blank fields are left untouched.
type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=M F"`
	BankAccount *string `json:"bankAccount" validate:"omitempty,max=64"`
	BankName    *string `json:"bankName" validate:"omitempty,max=100"`
}

// ProfileUpdateResult reports what a profile edit cost.
type ProfileUpdateResult struct {
	User          *models.User `json:"user"`
	ChangedFields []string     `json:"changedFields"`
	Penalty       float64      `json:"penalty"`
	FreeEdit      bool         `json:"freeEdit"`
}
