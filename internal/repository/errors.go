package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateKey is returned when a unique constraint rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrScheduleFull is returned when an exam schedule has no open seat left.
	ErrScheduleFull = errors.New("exam schedule is full")
	// ErrDuplicateRegistration is returned when a student is already booked on a schedule.
	ErrDuplicateRegistration = errors.New("student already registered for schedule")
	// ErrCapacityBelowArranged is returned when a capacity update would drop below booked seats.
	ErrCapacityBelowArranged = errors.New("capacity below arranged count")
	// ErrRecordLocked is returned when a conditional write finds the row no longer editable.
	ErrRecordLocked = errors.New("record is locked")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
