package models

import "time"

// CoachStatus is the employment state of a coach.
type CoachStatus string

const (
	CoachStatusActive   CoachStatus = "在职"
	CoachStatusResigned CoachStatus = "离职"
)

// Coach represents a driving coach.
type Coach struct {
	ID              string      `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	Phone           string      `db:"phone" json:"phone"`
	Gender          string      `db:"gender" json:"gender"`
	LicenseNo       string      `db:"license_no" json:"license_no"`
	TeachingSubject int         `db:"teaching_subject" json:"teaching_subject"`
	Status          CoachStatus `db:"status" json:"status"`
	HireDate        *time.Time  `db:"hire_date" json:"hire_date,omitempty"`
	Notes           string      `db:"notes" json:"notes"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// CoachFilter captures list criteria for coaches.
type CoachFilter struct {
	Search string
	Status CoachStatus
	ListOptions
}
