package models

import "time"

// CompetitionEditLog is one changed field of a competition edit.
type CompetitionEditLog struct {
	ID            string    `db:"id" json:"id"`
	CompetitionID string    `db:"competition_id" json:"competitionId"`
	EditorID      string    `db:"editor_id" json:"editorId"`
	FieldName     string    `db:"field_name" json:"fieldName"`
	OldValue      string    `db:"old_value" json:"oldValue"`
	NewValue      string    `db:"new_value" json:"newValue"`
	Penalty       float64   `db:"penalty" json:"penalty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// UserInfoEditLog is one changed field of a self-service profile edit.
type UserInfoEditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	FieldName string    `db:"field_name" json:"fieldName"`
	OldValue  string    `db:"old_value" json:"oldValue"`
	NewValue  string    `db:"new_value" json:"newValue"`
	Penalty   float64   `db:"penalty" json:"penalty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// FieldChange describes a single field difference before it is logged.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}
