package dto

// PerformanceRuleInput is one row of a performance rule batch.
type PerformanceRuleInput struct {
	CompetitionLevel string  `json:"competitionLevel" validate:"required,oneof=A B C D E"`
	AwardLevel       string  `json:"awardLevel" validate:"required,oneof=SPECIAL_PRIZE FIRST_PRIZE SECOND_PRIZE THIRD_PRIZE EXCELLENCE"`
	Score            float64 `json:"score" validate:"gte=0"`
	Workload         float64 `json:"workload" validate:"gte=0"`
}

// RewardRuleInput is one row of a reward rule batch.
type RewardRuleInput struct {
	CompetitionLevel string  `json:"competitionLevel" validate:"required,oneof=A B C D E"`
	AwardLevel       string  `json:"awardLevel" validate:"required,oneof=SPECIAL_PRIZE FIRST_PRIZE SECOND_PRIZE THIRD_PRIZE EXCELLENCE"`
	Amount           float64 `json:"amount" validate:"gte=0"`
}

// UpsertPerformanceRulesRequest is a batch of performance rules.
type UpsertPerformanceRulesRequest struct {
	Rules []PerformanceRuleInput `json:"rules" validate:"required,min=1,dive"`
}

// UpsertRewardRulesRequest is a batch of reward rules.
type UpsertRewardRulesRequest struct {
	Rules []RewardRuleInput `json:"rules" validate:"required,min=1,dive"`
}
