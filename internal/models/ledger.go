package models

import "time"

// LedgerReason tags why a performance score moved.
type LedgerReason string

const (
	ReasonAwardCredit        LedgerReason = "AWARD_CREDIT"
	ReasonCoTeacherCredit    LedgerReason = "CO_TEACHER_CREDIT"
	ReasonProfileEditPenalty LedgerReason = "PROFILE_EDIT_PENALTY"
	ReasonCompetitionPenalty LedgerReason = "COMPETITION_EDIT_PENALTY"
)

// LedgerEntry is the outcome of one score adjustment.
type LedgerEntry struct {
	UserID     string       `json:"userId"`
	Delta      float64      `json:"delta"`
	Balance    float64      `json:"balance"`
	Reason     LedgerReason `json:"reason"`
	OccurredAt time.Time    `json:"occurredAt"`
}
