package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

// FinancialState pairs a payment status with the enrollment status it drives.
// The two only ever change together through this type.
type FinancialState struct {
	Payment    models.PaymentStatus
	Enrollment models.EnrollmentStatus
}

var (
	stateUnpaid   = FinancialState{Payment: models.PaymentStatusUnpaid, Enrollment: models.EnrollmentStatusUnpaid}
	statePartial  = FinancialState{Payment: models.PaymentStatusPartial, Enrollment: models.EnrollmentStatusPartial}
	statePaid     = FinancialState{Payment: models.PaymentStatusPaid, Enrollment: models.EnrollmentStatusPaid}
	stateRefunded = FinancialState{Payment: models.PaymentStatusRefunded, Enrollment: models.EnrollmentStatusRefunded}
)

// DeriveFinancialState classifies a student from contract, paid and waived amounts.
func DeriveFinancialState(contract, actual, discount decimal.Decimal) FinancialState {
	paidEquivalent := actual.Add(discount)
	switch {
	case paidEquivalent.GreaterThanOrEqual(contract):
		return statePaid
	case paidEquivalent.IsPositive():
		return statePartial
	default:
		return stateUnpaid
	}
}

// financialEnrollment reports whether the enrollment status is still owned by
// the payment rule. Later lifecycle states are left alone.
func financialEnrollment(status models.EnrollmentStatus) bool {
	switch status {
	case models.EnrollmentStatusUnpaid, models.EnrollmentStatusPartial, models.EnrollmentStatusPaid, models.EnrollmentStatusRefunded:
		return true
	}
	return false
}

func recomputeDebt(student *models.Student) {
	student.DebtAmount = student.ContractAmount.Sub(student.ActualAmount).Sub(student.DiscountAmount)
}

func setFinancialState(student *models.Student, state FinancialState) {
	student.PaymentStatus = state.Payment
	if financialEnrollment(student.EnrollmentStatus) || state == stateRefunded {
		student.EnrollmentStatus = state.Enrollment
	}
}

// rederive applies the status rule unless the student was refunded.
func rederive(student *models.Student) {
	recomputeDebt(student)
	if student.PaymentStatus == models.PaymentStatusRefunded {
		return
	}
	setFinancialState(student, DeriveFinancialState(student.ContractAmount, student.ActualAmount, student.DiscountAmount))
}

// validateAmount requires a positive amount with at most two fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "amount must be greater than 0")
	}
	if !amount.Equal(amount.Round(2)) {
		return appErrors.Clone(appErrors.ErrValidation, "amount supports at most two decimal places")
	}
	return nil
}

// ApplyPayment adds received money to the student.
func ApplyPayment(student *models.Student, amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	student.ActualAmount = student.ActualAmount.Add(amount)
	rederive(student)
	return nil
}

// ApplyRefund returns money to the student and always ends in the refunded state.
func ApplyRefund(student *models.Student, amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(student.ActualAmount) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("refund amount %s exceeds paid amount %s", amount.StringFixed(2), student.ActualAmount.StringFixed(2)))
	}
	student.ActualAmount = student.ActualAmount.Sub(amount)
	recomputeDebt(student)
	setFinancialState(student, stateRefunded)
	return nil
}

// ApplyDiscount waives part of the contract.
func ApplyDiscount(student *models.Student, amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if student.DiscountAmount.Add(amount).GreaterThan(student.ContractAmount) {
		return appErrors.Clone(appErrors.ErrValidation, "total discount cannot exceed contract amount")
	}
	student.DiscountAmount = student.DiscountAmount.Add(amount)
	rederive(student)
	return nil
}

// ReverseLedgerEntry undoes the effect of a ledger row on its student.
func ReverseLedgerEntry(student *models.Student, record *models.PaymentRecord) error {
	magnitude := record.Amount.Abs()
	switch record.RecordType {
	case models.RecordTypeDiscount:
		if magnitude.GreaterThan(student.DiscountAmount) {
			return appErrors.Clone(appErrors.ErrConflict, "reversing this discount would make the discount negative")
		}
		student.DiscountAmount = student.DiscountAmount.Sub(magnitude)
	case models.RecordTypeRefund:
		student.ActualAmount = student.ActualAmount.Add(magnitude)
		recomputeDebt(student)
		setFinancialState(student, DeriveFinancialState(student.ContractAmount, student.ActualAmount, student.DiscountAmount))
		return nil
	default:
		if magnitude.GreaterThan(student.ActualAmount) {
			return appErrors.Clone(appErrors.ErrConflict, "reversing this payment would make the paid amount negative")
		}
		student.ActualAmount = student.ActualAmount.Sub(magnitude)
	}
	rederive(student)
	return nil
}
