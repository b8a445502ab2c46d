package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the financial classification of a student.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "未缴费"
	PaymentStatusPartial  PaymentStatus = "部分缴费"
	PaymentStatusPaid     PaymentStatus = "已缴费"
	PaymentStatusRefunded PaymentStatus = "已退费"
)

// EnrollmentStatus is the broader student lifecycle status.
type EnrollmentStatus string

const (
	EnrollmentStatusUnpaid       EnrollmentStatus = "报名未缴费"
	EnrollmentStatusPartial      EnrollmentStatus = "报名部分缴费"
	EnrollmentStatusPaid         EnrollmentStatus = "报名已缴费"
	EnrollmentStatusLearning     EnrollmentStatus = "学习中"
	EnrollmentStatusGraduated    EnrollmentStatus = "已结业"
	EnrollmentStatusRefunded     EnrollmentStatus = "已退费"
	EnrollmentStatusDisqualified EnrollmentStatus = "废考"
)

// Student represents an enrollee with their financial aggregates.
type Student struct {
	ID               string           `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	Gender           string           `db:"gender" json:"gender"`
	IDCard           string           `db:"id_card" json:"id_card"`
	Phone            string           `db:"phone" json:"phone"`
	ClassTypeID      string           `db:"class_type_id" json:"class_type_id"`
	CoachID          *string          `db:"coach_id" json:"coach_id,omitempty"`
	EnrollmentDate   time.Time        `db:"enrollment_date" json:"enrollment_date"`
	ContractAmount   decimal.Decimal  `db:"contract_amount" json:"contract_amount"`
	ActualAmount     decimal.Decimal  `db:"actual_amount" json:"actual_amount"`
	DiscountAmount   decimal.Decimal  `db:"discount_amount" json:"discount_amount"`
	DebtAmount       decimal.Decimal  `db:"debt_amount" json:"debt_amount"`
	PaymentStatus    PaymentStatus    `db:"payment_status" json:"payment_status"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	Notes            string           `db:"notes" json:"notes"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches a student with related names.
type StudentDetail struct {
	Student
	ClassTypeName string  `db:"class_type_name" json:"class_type_name"`
	CoachName     *string `db:"coach_name" json:"coach_name,omitempty"`
}

// StudentFilter captures list criteria for students.
type StudentFilter struct {
	Search           string
	PaymentStatus    PaymentStatus
	EnrollmentStatus EnrollmentStatus
	ClassTypeID      string
	CoachID          string
	ListOptions
}
