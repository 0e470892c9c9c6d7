package dto

// RankingQuery selects a department ranking page.
type RankingQuery struct {
	DepartmentID string `form:"departmentId"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}

// RewardExportQuery selects the year and output format of the reward report.
type RewardExportQuery struct {
	Year   int    `form:"year" validate:"required,min=2000,max=2100"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// CompetitionStatsQuery optionally narrows competition statistics to one year.
type CompetitionStatsQuery struct {
	Year int `form:"year" validate:"omitempty,min=2000,max=2100"`
}
