package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalaryConfigType identifies which payroll rate a config row sets.
type SalaryConfigType string

const (
	SalaryConfigBaseDaily   SalaryConfigType = "base_daily"
	SalaryConfigSubject2    SalaryConfigType = "subject2_commission"
	SalaryConfigSubject3    SalaryConfigType = "subject3_commission"
	SalaryConfigRecruitment SalaryConfigType = "recruitment_commission"
)

// SalaryConfigTypes lists every config type in resolution order.
var SalaryConfigTypes = []SalaryConfigType{
	SalaryConfigBaseDaily,
	SalaryConfigSubject2,
	SalaryConfigSubject3,
	SalaryConfigRecruitment,
}

// Valid reports whether the config type is known.
func (t SalaryConfigType) Valid() bool {
	for _, known := range SalaryConfigTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SalaryConfig is a dated payroll rate.
type SalaryConfig struct {
	ID            string           `db:"id" json:"id"`
	ConfigType    SalaryConfigType `db:"config_type" json:"config_type"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	EffectiveDate time.Time        `db:"effective_date" json:"effective_date"`
	ExpiryDate    *time.Time       `db:"expiry_date" json:"expiry_date,omitempty"`
	Notes         string           `db:"notes" json:"notes"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// SalaryConfigFilter captures list criteria for payroll configs.
type SalaryConfigFilter struct {
	ConfigType SalaryConfigType
	ListOptions
}

// PayrollRates are the resolved per-unit rates for a target date.
type PayrollRates struct {
	BaseDaily   decimal.Decimal `json:"base_daily"`
	Subject2    decimal.Decimal `json:"subject2_commission"`
	Subject3    decimal.Decimal `json:"subject3_commission"`
	Recruitment decimal.Decimal `json:"recruitment_commission"`
}

// SalaryStatus is the payout state of a salary record.
type SalaryStatus string

const (
	SalaryStatusPending SalaryStatus = "pending"
	SalaryStatusPaid    SalaryStatus = "paid"
)

// CoachSalary is one coach's payroll record for one month.
type CoachSalary struct {
	ID                    string          `db:"id" json:"id"`
	CoachID               string          `db:"coach_id" json:"coach_id"`
	Month                 string          `db:"month" json:"month"`
	AttendanceDays        int             `db:"attendance_days" json:"attendance_days"`
	BaseDailyRate         decimal.Decimal `db:"base_daily_rate" json:"base_daily_rate"`
	BaseSalary            decimal.Decimal `db:"base_salary" json:"base_salary"`
	Subject2PassCount     int             `db:"subject2_pass_count" json:"subject2_pass_count"`
	Subject2Rate          decimal.Decimal `db:"subject2_rate" json:"subject2_rate"`
	Subject2Commission    decimal.Decimal `db:"subject2_commission" json:"subject2_commission"`
	Subject3PassCount     int             `db:"subject3_pass_count" json:"subject3_pass_count"`
	Subject3Rate          decimal.Decimal `db:"subject3_rate" json:"subject3_rate"`
	Subject3Commission    decimal.Decimal `db:"subject3_commission" json:"subject3_commission"`
	RecruitmentCount      int             `db:"recruitment_count" json:"recruitment_count"`
	RecruitmentRate       decimal.Decimal `db:"recruitment_rate" json:"recruitment_rate"`
	RecruitmentCommission decimal.Decimal `db:"recruitment_commission" json:"recruitment_commission"`
	Bonus                 decimal.Decimal `db:"bonus" json:"bonus"`
	Deduction             decimal.Decimal `db:"deduction" json:"deduction"`
	GrossSalary           decimal.Decimal `db:"gross_salary" json:"gross_salary"`
	Status                SalaryStatus    `db:"status" json:"status"`
	PaidAt                *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	Notes                 string          `db:"notes" json:"notes"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// CoachSalaryDetail adds the coach name for listings and exports.
type CoachSalaryDetail struct {
	CoachSalary
	CoachName string `db:"coach_name" json:"coach_name"`
}

// CoachSalaryFilter captures list criteria for salary records.
type CoachSalaryFilter struct {
	Month   string
	CoachID string
	Status  SalaryStatus
	ListOptions
}

// CoachActivity holds the commission-relevant counts of one coach in a month.
type CoachActivity struct {
	CoachID        string      `db:"coach_id"`
	CoachStatus    CoachStatus `db:"coach_status"`
	Subject2Passes int         `db:"subject2_passes"`
	Subject3Passes int         `db:"subject3_passes"`
	Recruits       int         `db:"recruits"`
}

// PayrollGenerateResult summarises a generate run.
type PayrollGenerateResult struct {
	Month     string `json:"month"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
}

// PayrollRefreshResult summarises a refresh run.
type PayrollRefreshResult struct {
	Month       string `json:"month"`
	Refreshed   int    `json:"refreshed"`
	SkippedPaid int    `json:"skipped_paid"`
}
