package models

import "time"

// Department groups teachers and scopes department administrators.
type Department struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	TeacherCount int       `db:"teacher_count" json:"teacherCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
