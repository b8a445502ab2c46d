package dto

import "github.com/shopspring/decimal"

// SalaryConfigRequest is shared by payroll config create and update.
type SalaryConfigRequest struct {
	ConfigType    string          `json:"config_type" validate:"required,oneof=base_daily subject2_commission subject3_commission recruitment_commission"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date" validate:"required,datetime=2006-01-02"`
	ExpiryDate    string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         string          `json:"notes"`
}

// GenerateSalaryRequest creates monthly salary records.
type GenerateSalaryRequest struct {
	Month          string `json:"month" validate:"required,datetime=2006-01"`
	AttendanceDays *int   `json:"attendance_days" validate:"omitempty,min=0,max=31"`
}

// RefreshSalaryRequest recomputes derived salary fields for a month.
type RefreshSalaryRequest struct {
	Month string `json:"month" validate:"required,datetime=2006-01"`
}

// UpdateSalaryRequest edits the manually entered parts of a salary record.
type UpdateSalaryRequest struct {
	AttendanceDays *int             `json:"attendance_days" validate:"omitempty,min=0,max=31"`
	Bonus          *decimal.Decimal `json:"bonus"`
	Deduction      *decimal.Decimal `json:"deduction"`
	Notes          *string          `json:"notes"`
}
