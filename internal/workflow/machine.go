// Package workflow holds the two-stage approval machine shared by
// applications and awards.
package workflow

import (
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

// Kind describes which entity is moving through the chain and which actions it accepts.
type Kind struct {
	Name    string
	Actions []models.ApprovalAction
}

var (
	// Application accepts every decision, including a revision request.
	Application = Kind{Name: "application", Actions: []models.ApprovalAction{
		models.ActionApprove, models.ActionReject, models.ActionRequestRevision,
	}}
	// Award accepts approve and reject only.
	Award = Kind{Name: "award", Actions: []models.ApprovalAction{
		models.ActionApprove, models.ActionReject,
	}}
)

// Allows reports whether action is accepted for the kind.
func (k Kind) Allows(action models.ApprovalAction) bool {
	for _, a := range k.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Subject is the part of an application or award the machine looks at.
type Subject struct {
	Status       models.ApprovalStatus
	DepartmentID *string
}

// Transition is the result of a legal decision.
type Transition struct {
	From   models.ApprovalStatus
	To     models.ApprovalStatus
	Stage  models.ApprovalStage
	Action models.ApprovalAction
	// Final is set when the subject reached APPROVED at the school stage.
	Final bool
}

// Decide validates an approver's decision and returns the resulting transition.
// Checks run in order: action, role, state, department.
func (k Kind) Decide(actor models.Actor, subject Subject, action models.ApprovalAction) (Transition, error) {
	if !k.Allows(action) {
		return Transition{}, appErrors.Clone(appErrors.ErrValidation, "action "+string(action)+" is not allowed for "+k.Name)
	}

	var stage models.ApprovalStage
	var expected models.ApprovalStatus
	switch {
	case actor.Role == models.RoleDepartmentAdmin:
		stage, expected = models.StageDepartment, models.StatusPendingDepartment
	case actor.Role.IsSchoolLevel():
		stage, expected = models.StageSchool, models.StatusPendingSchool
	default:
		return Transition{}, appErrors.Clone(appErrors.ErrForbidden, "role cannot approve")
	}

	if subject.Status != expected {
		return Transition{}, appErrors.Clone(appErrors.ErrInvalidState,
			k.Name+" is "+string(subject.Status)+", expected "+string(expected))
	}

	if stage == models.StageDepartment {
		if actor.DepartmentID == nil || subject.DepartmentID == nil || *actor.DepartmentID != *subject.DepartmentID {
			return Transition{}, appErrors.Clone(appErrors.ErrForbidden, k.Name+" belongs to another department")
		}
	}

	t := Transition{From: subject.Status, Stage: stage, Action: action}
	switch action {
	case models.ActionApprove:
		if stage == models.StageDepartment {
			t.To = models.StatusPendingSchool
		} else {
			t.To = models.StatusApproved
			t.Final = true
		}
	case models.ActionReject:
		t.To = models.StatusRejected
	case models.ActionRequestRevision:
		t.To = models.StatusRevisionRequired
	}
	return t, nil
}

// Editable reports whether the owner may still change or submit a record in status.
func Editable(status models.ApprovalStatus) bool {
	switch status {
	case models.StatusDraft, models.StatusRejected, models.StatusRevisionRequired:
		return true
	}
	return false
}

// Submittable is Editable; submission always re-enters PENDING_DEPARTMENT.
func Submittable(status models.ApprovalStatus) bool {
	return Editable(status)
}

// CanApprove reports whether the role takes part in the approval chain at all.
func CanApprove(role models.UserRole) bool {
	return role == models.RoleDepartmentAdmin || role.IsSchoolLevel()
}

// PendingStatusFor returns the queue status an approver role works on.
func PendingStatusFor(role models.UserRole) (models.ApprovalStatus, bool) {
	switch {
	case role == models.RoleDepartmentAdmin:
		return models.StatusPendingDepartment, true
	case role.IsSchoolLevel():
		return models.StatusPendingSchool, true
	}
	return "", false
}
