package models

import "time"

// AwardLevel is the prize tier claimed on an award.
type AwardLevel string

const (
	AwardSpecialPrize AwardLevel = "SPECIAL_PRIZE"
	AwardFirstPrize   AwardLevel = "FIRST_PRIZE"
	AwardSecondPrize  AwardLevel = "SECOND_PRIZE"
	AwardThirdPrize   AwardLevel = "THIRD_PRIZE"
	AwardExcellence   AwardLevel = "EXCELLENCE"
)

// AwardLevels lists prize tiers from highest to lowest.
var AwardLevels = []AwardLevel{AwardSpecialPrize, AwardFirstPrize, AwardSecondPrize, AwardThirdPrize, AwardExcellence}

// Valid reports whether l is a known prize tier.
func (l AwardLevel) Valid() bool {
	for _, lv := range AwardLevels {
		if lv == l {
			return true
		}
	}
	return false
}

// Award is a prize claim filed against an approved application. Score, workload
// and reward are copied from the rule tables when the claim is filed.
type Award struct {
	ID               string         `db:"id" json:"id"`
	ApplicationID    string         `db:"application_id" json:"applicationId"`
	AwardLevel       AwardLevel     `db:"award_level" json:"awardLevel"`
	CertificateNo    string         `db:"certificate_no" json:"certificateNo"`
	PerformanceScore float64        `db:"performance_score" json:"performanceScore"`
	Workload         float64        `db:"workload" json:"workload"`
	RewardAmount     float64        `db:"reward_amount" json:"rewardAmount"`
	Status           ApprovalStatus `db:"status" json:"status"`
	ApprovedAt       *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`

	TeacherID        string           `db:"teacher_id" json:"teacherId,omitempty"`
	CoTeacherID      *string          `db:"co_teacher_id" json:"coTeacherId,omitempty"`
	DepartmentID     *string          `db:"department_id" json:"departmentId,omitempty"`
	CompetitionName  string           `db:"competition_name" json:"competitionName,omitempty"`
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel,omitempty"`
	TeacherName      string           `db:"teacher_name" json:"teacherName,omitempty"`
}

// AwardFilter narrows award listings.
type AwardFilter struct {
	Status           *ApprovalStatus
	AwardLevel       *AwardLevel
	CompetitionLevel *CompetitionLevel
	DepartmentID     string
	ParticipantID    string
	Page             int
	PageSize         int
}

// AwardCertificate carries everything printed on an award certificate.
type AwardCertificate struct {
	AwardID           string         `db:"award_id"`
	CertificateNo     string         `db:"certificate_no"`
	AwardLevel        AwardLevel     `db:"award_level"`
	Status            ApprovalStatus `db:"status"`
	ApprovedAt        *time.Time     `db:"approved_at"`
	CompetitionName   string         `db:"competition_name"`
	CompetitionYear   int            `db:"competition_year"`
	TeacherID         string         `db:"teacher_id"`
	TeacherName       string         `db:"teacher_name"`
	TeacherEmployeeID string         `db:"teacher_employee_id"`
	CoTeacherID       *string        `db:"co_teacher_id"`
	CoTeacherName     *string        `db:"co_teacher_name"`
	DepartmentID      *string        `db:"department_id"`
	DepartmentName    *string        `db:"department_name"`
	Students          string         `db:"students"`
}
