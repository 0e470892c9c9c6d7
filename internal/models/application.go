package models

import "time"

// ApprovalStatus is the lifecycle state shared by applications and awards.
type ApprovalStatus string

const (
	StatusDraft             ApprovalStatus = "DRAFT"
	StatusPendingDepartment ApprovalStatus = "PENDING_DEPARTMENT"
	StatusPendingSchool     ApprovalStatus = "PENDING_SCHOOL"
	StatusApproved          ApprovalStatus = "APPROVED"
	StatusRejected          ApprovalStatus = "REJECTED"
	StatusRevisionRequired  ApprovalStatus = "REVISION_REQUIRED"
)

// ApprovalAction is an approver's decision.
type ApprovalAction string

const (
	ActionApprove         ApprovalAction = "APPROVE"
	ActionReject          ApprovalAction = "REJECT"
	ActionRequestRevision ApprovalAction = "REQUEST_REVISION"
)

// ApprovalStage identifies which tier of the chain acted.
type ApprovalStage string

const (
	StageDepartment ApprovalStage = "DEPARTMENT"
	StageSchool     ApprovalStage = "SCHOOL"
)

// Application is a teacher's entry into a competition.
type Application struct {
	ID            string         `db:"id" json:"id"`
	CompetitionID string         `db:"competition_id" json:"competitionId"`
	TeacherID     string         `db:"teacher_id" json:"teacherId"`
	CoTeacherID   *string        `db:"co_teacher_id" json:"coTeacherId,omitempty"`
	DepartmentID  *string        `db:"department_id" json:"departmentId,omitempty"`
	Status        ApprovalStatus `db:"status" json:"status"`
	SubmittedAt   *time.Time     `db:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`

	CompetitionName  string           `db:"competition_name" json:"competitionName,omitempty"`
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel,omitempty"`
	TeacherName      string           `db:"teacher_name" json:"teacherName,omitempty"`

	Students []ApplicationStudent `db:"-" json:"students,omitempty"`
}

// IsParticipant reports whether userID is the teacher or co-teacher.
func (a *Application) IsParticipant(userID string) bool {
	return a.TeacherID == userID || (a.CoTeacherID != nil && *a.CoTeacherID == userID)
}

// ApplicationStudent is one roster row, ordered by Position.
type ApplicationStudent struct {
	ApplicationID string `db:"application_id" json:"-"`
	StudentID     string `db:"student_id" json:"studentId"`
	Position      int    `db:"position" json:"position"`
	StudentNo     string `db:"student_no" json:"studentNo,omitempty"`
	Name          string `db:"name" json:"name,omitempty"`
	ClassName     string `db:"class_name" json:"className,omitempty"`
}

// ApprovalRecord is an append-only decision log row. It is used for both
// application and award histories; SubjectID carries the owning record id.
type ApprovalRecord struct {
	ID         string         `db:"id" json:"id"`
	SubjectID  string         `db:"subject_id" json:"subjectId"`
	ApproverID string         `db:"approver_id" json:"approverId"`
	Stage      ApprovalStage  `db:"stage" json:"stage"`
	Action     ApprovalAction `db:"action" json:"action"`
	FromStatus ApprovalStatus `db:"from_status" json:"fromStatus"`
	ToStatus   ApprovalStatus `db:"to_status" json:"toStatus"`
	Comment    *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`

	ApproverName string `db:"approver_name" json:"approverName,omitempty"`
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	Status        *ApprovalStatus
	CompetitionID string
	TeacherID     string
	DepartmentID  string
	// ParticipantID matches either the teacher or the co-teacher.
	ParticipantID string
	Page          int
	PageSize      int
}
