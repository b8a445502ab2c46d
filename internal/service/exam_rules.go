package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

const (
	thirdFailureThreshold  = 3
	fourthFailureThreshold = 4
	revocationThreshold    = 5
	progressPerSubject     = 25
)

// ExamTransition is what one entered result did to a student's progress.
type ExamTransition struct {
	Warnings []models.ExamWarningLog
	Revoked  bool
}

// ApplyExamResult advances the subject state machine for one result.
// Revocation is reported only on the transition into the revoked state.
func ApplyExamResult(progress *models.ExamProgress, subject models.ExamSubject, result models.ExamResult, on time.Time) (*ExamTransition, error) {
	sp := progress.Subject(subject)
	if sp == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject must be between 1 and 4")
	}
	if sp.Status == models.SubjectStatusPassed {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already passed", subject.Label()))
	}

	transition := &ExamTransition{}
	sp.TotalCount++
	switch result {
	case models.ExamResultPass:
		passed := on
		sp.FailedCount = 0
		sp.Status = models.SubjectStatusPassed
		sp.PassDate = &passed
	case models.ExamResultFail:
		sp.FailedCount++
		sp.Status = models.SubjectStatusFailed
		transition.Warnings, transition.Revoked = escalate(progress, subject, sp.FailedCount, on)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam result must be 通过 or 未通过")
	}
	recomputeProgress(progress)
	return transition, nil
}

func escalate(progress *models.ExamProgress, subject models.ExamSubject, failed int, on time.Time) ([]models.ExamWarningLog, bool) {
	warning := models.ExamWarningLog{StudentID: progress.StudentID, Subject: subject, FailedCount: failed}
	switch {
	case failed == thirdFailureThreshold:
		warning.WarningType = models.WarningTypeThirdFailure
		warning.Message = fmt.Sprintf("%s第%d次未通过", subject.Label(), failed)
	case failed == fourthFailureThreshold:
		warning.WarningType = models.WarningTypeFourthFailure
		warning.Message = fmt.Sprintf("%s第%d次未通过，再次未通过将作废考试资格", subject.Label(), failed)
	case failed >= revocationThreshold:
		if progress.ExamQualification == models.QualificationRevoked {
			return nil, false
		}
		revokedOn := on
		progress.ExamQualification = models.QualificationRevoked
		progress.DisqualifiedDate = &revokedOn
		progress.DisqualifiedReason = fmt.Sprintf("%s连续%d次未通过", subject.Label(), revocationThreshold)
		warning.WarningType = models.WarningTypeRevoked
		warning.Message = progress.DisqualifiedReason + "，考试资格作废"
		return []models.ExamWarningLog{warning}, true
	default:
		return nil, false
	}
	return []models.ExamWarningLog{warning}, false
}

func recomputeProgress(progress *models.ExamProgress) {
	passed := 0
	for _, sp := range progress.Subjects {
		if sp.Status == models.SubjectStatusPassed {
			passed++
		}
	}
	progress.TotalProgress = passed * progressPerSubject
}

// CheckAdmission decides whether a student may book a schedule.
func CheckAdmission(student *models.Student, schedule *models.ExamSchedule, progress *models.ExamProgress) error {
	if student.EnrollmentStatus == models.EnrollmentStatusDisqualified {
		return appErrors.Clone(appErrors.ErrInvalidStateTransition, "student is disqualified from exams")
	}
	if progress.ExamQualification == models.QualificationRevoked {
		return appErrors.Clone(appErrors.ErrInvalidStateTransition, "exam qualification has been revoked")
	}
	if schedule.ArrangedCount >= schedule.Capacity {
		return appErrors.Clone(appErrors.ErrConflict, "exam schedule is full")
	}
	if sp := progress.Subject(schedule.Subject); sp != nil && sp.Status == models.SubjectStatusPassed {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already passed", schedule.Subject.Label()))
	}
	return nil
}
