package models

import "time"

// Student is a participant referenced by applications.
type Student struct {
	ID        string    `db:"id" json:"id"`
	StudentNo string    `db:"student_no" json:"studentNo"`
	Name      string    `db:"name" json:"name"`
	ClassName string    `db:"class_name" json:"className"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	Search    string
	ClassName string
	Page      int
	PageSize  int
}
