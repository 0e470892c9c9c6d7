package dto

import "github.com/noah-isme/competition-approval-api/internal/models"

// CreateApplicationRequest defines payload for drafting an application.
type CreateApplicationRequest struct {
	CompetitionID string   `json:"competitionId" validate:"required"`
	CoTeacherID   *string  `json:"coTeacherId" validate:"omitempty,min=1"`
	StudentIDs    []string `json:"studentIds" validate:"omitempty,max=50,dive,required"`
}

// UpdateApplicationRequest replaces the co-teacher and the whole roster.
type UpdateApplicationRequest struct {
	CoTeacherID *string  `json:"coTeacherId" validate:"omitempty,min=1"`
	StudentIDs  []string `json:"studentIds" validate:"omitempty,max=50,dive,required"`
}

// ApprovalDecisionRequest is an approver's decision on an application or award.
type ApprovalDecisionRequest struct {
	Action  models.ApprovalAction `json:"action" validate:"required,oneof=APPROVE REJECT REQUEST_REVISION"`
	Comment *string               `json:"comment" validate:"omitempty,max=500"`
}

// ApplicationListQuery captures list query parameters.
type ApplicationListQuery struct {
	Status        string `form:"status" validate:"omitempty,oneof=DRAFT PENDING_DEPARTMENT PENDING_SCHOOL APPROVED REJECTED REVISION_REQUIRED"`
	CompetitionID string `form:"competitionId"`
	TeacherID     string `form:"teacherId"`
	DepartmentID  string `form:"departmentId"`
	Page          int    `form:"page"`
	PageSize      int    `form:"pageSize"`
}
