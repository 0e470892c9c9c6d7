package models

import "time"

// RuleKey identifies a rule row.
type RuleKey struct {
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel" yaml:"competition_level"`
	AwardLevel       AwardLevel       `db:"award_level" json:"awardLevel" yaml:"award_level"`
}

// PerformanceRule maps a key to score and workload units.
type PerformanceRule struct {
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel" yaml:"competition_level"`
	AwardLevel       AwardLevel       `db:"award_level" json:"awardLevel" yaml:"award_level"`
	Score            float64          `db:"score" json:"score" yaml:"score"`
	Workload         float64          `db:"workload" json:"workload" yaml:"workload"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt" yaml:"-"`
}

// Key returns the composite key.
func (r PerformanceRule) Key() RuleKey {
	return RuleKey{CompetitionLevel: r.CompetitionLevel, AwardLevel: r.AwardLevel}
}

// RewardRule maps a key to a monetary amount.
type RewardRule struct {
	CompetitionLevel CompetitionLevel `db:"competition_level" json:"competitionLevel" yaml:"competition_level"`
	AwardLevel       AwardLevel       `db:"award_level" json:"awardLevel" yaml:"award_level"`
	Amount           float64          `db:"amount" json:"amount" yaml:"amount"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt" yaml:"-"`
}

// Key returns the composite key.
func (r RewardRule) Key() RuleKey {
	return RuleKey{CompetitionLevel: r.CompetitionLevel, AwardLevel: r.AwardLevel}
}

// RuleTables bundles both tables for reads.
type RuleTables struct {
	Performance []PerformanceRule `json:"performance" yaml:"performance"`
	Reward      []RewardRule      `json:"reward" yaml:"reward"`
}
