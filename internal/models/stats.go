package models

import "time"

// LevelStat aggregates awards for one competition tier.
type LevelStat struct {
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel"`
	Count            int              `db:"count" json:"count"`
	TotalScore       float64          `db:"total_score" json:"totalScore"`
	TotalWorkload    float64          `db:"total_workload" json:"totalWorkload"`
}

// PerformanceAward is an approved award as seen by one participant.
type PerformanceAward struct {
	AwardID          string           `db:"award_id" json:"awardId"`
	CompetitionName  string           `db:"competition_name" json:"competitionName"`
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel"`
	AwardLevel       AwardLevel       `db:"award_level" json:"awardLevel"`
	IsCoTeacher      bool             `db:"is_co_teacher" json:"isCoTeacher"`
	Score            float64          `db:"score" json:"score"`
	Workload         float64          `db:"workload" json:"workload"`
	ApprovedAt       *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
}

// MyPerformance is the caller's performance dashboard.
type MyPerformance struct {
	UserID           string             `json:"userId"`
	PerformanceScore float64            `json:"performanceScore"`
	MonthlyEditCount int                `json:"monthlyEditCount"`
	LastEditMonth    *string            `json:"lastEditMonth,omitempty"`
	FreeEditsLeft    int                `json:"freeEditsLeft"`
	Awards           []PerformanceAward `json:"awards"`
	ByLevel          []LevelStat        `json:"byLevel"`
	RecentEdits      []UserInfoEditLog  `json:"recentEdits"`
}

// RankingEntry is one row of a department ranking.
type RankingEntry struct {
	Rank             int     `db:"-" json:"rank"`
	UserID           string  `db:"id" json:"userId"`
	EmployeeID       string  `db:"employee_id" json:"employeeId"`
	Name             string  `db:"name" json:"name"`
	PerformanceScore float64 `db:"performance_score" json:"performanceScore"`
}

// DepartmentStat summarises scores per department.
type DepartmentStat struct {
	DepartmentID   string  `db:"department_id" json:"departmentId"`
	DepartmentName string  `db:"department_name" json:"departmentName"`
	TeacherCount   int     `db:"teacher_count" json:"teacherCount"`
	TotalScore     float64 `db:"total_score" json:"totalScore"`
	AverageScore   float64 `db:"average_score" json:"averageScore"`
}

// SchoolOverview is the school-wide dashboard.
type SchoolOverview struct {
	TotalTeachers     int              `db:"total_teachers" json:"totalTeachers"`
	TotalApplications int              `db:"total_applications" json:"totalApplications"`
	PendingApprovals  int              `db:"pending_approvals" json:"pendingApprovals"`
	ApprovedAwards    int              `db:"approved_awards" json:"approvedAwards"`
	Departments       []DepartmentStat `db:"-" json:"departments"`
	GeneratedAt       time.Time        `db:"-" json:"generatedAt"`
}

// RewardShare is one participant's slice of an approved award's reward.
type RewardShare struct {
	UserID      string  `db:"user_id" json:"userId"`
	EmployeeID  string  `db:"employee_id" json:"employeeId"`
	Name        string  `db:"name" json:"name"`
	BankName    string  `db:"bank_name" json:"bankName"`
	BankAccount string  `db:"bank_account" json:"bankAccount"`
	Amount      float64 `db:"amount" json:"amount"`
	IsCoTeacher bool    `db:"is_co_teacher" json:"isCoTeacher"`
}

// AnnualReward is the reward total for one teacher in one year.
type AnnualReward struct {
	UserID      string  `json:"userId"`
	EmployeeID  string  `json:"employeeId"`
	Name        string  `json:"name"`
	BankName    string  `json:"bankName"`
	BankAccount string  `json:"bankAccount"`
	AwardCount  int     `json:"awardCount"`
	TotalAmount float64 `json:"totalAmount"`
}

// CountBy is one bucket of a grouped count.
type CountBy struct {
	Key   string `db:"key" json:"key"`
	Count int    `db:"count" json:"count"`
}

// CompetitionStats breaks the competition catalogue and approved awards down by tier.
type CompetitionStats struct {
	Year          *int      `json:"year,omitempty"`
	ByLevel       []CountBy `json:"competitionsByLevel"`
	ByRegion      []CountBy `json:"competitionsByRegion"`
	ByYear        []CountBy `json:"competitionsByYear"`
	AwardsByLevel []CountBy `json:"awardsByLevel"`
}

// AwardCountScope limits award counts to one participant or one department.
type AwardCountScope struct {
	ParticipantID string
	DepartmentID  string
}
