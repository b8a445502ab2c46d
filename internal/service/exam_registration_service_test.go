package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

// registrationRepoStub mirrors the transactional repository: callbacks see
// copies and nothing is stored when they fail.
type registrationRepoStub struct {
	students      map[string]*models.Student
	schedules     map[string]*models.ExamSchedule
	progress      map[string]*models.ExamProgress
	registrations map[string]*models.ExamRegistration
	warnings      []models.ExamWarningLog
}

func newRegistrationRepoStub() *registrationRepoStub {
	return &registrationRepoStub{
		students:      map[string]*models.Student{},
		schedules:     map[string]*models.ExamSchedule{},
		progress:      map[string]*models.ExamProgress{},
		registrations: map[string]*models.ExamRegistration{},
	}
}

func (r *registrationRepoStub) progressOf(studentID string) *models.ExamProgress {
	if p, ok := r.progress[studentID]; ok {
		return p
	}
	p := models.NewExamProgress(studentID)
	r.progress[studentID] = p
	return p
}

func (r *registrationRepoStub) List(ctx context.Context, filter models.ExamRegistrationFilter) ([]models.ExamRegistrationDetail, int, error) {
	return nil, 0, nil
}

func (r *registrationRepoStub) FindByID(ctx context.Context, id string) (*models.ExamRegistrationDetail, error) {
	reg, ok := r.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ExamRegistrationDetail{ExamRegistration: *reg}, nil
}

func (r *registrationRepoStub) Create(ctx context.Context, reg *models.ExamRegistration, admit repository.RegistrationAdmission) error {
	student, ok := r.students[reg.StudentID]
	if !ok {
		return sql.ErrNoRows
	}
	schedule, ok := r.schedules[reg.ScheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	progress := *r.progressOf(reg.StudentID)
	if err := admit(student, schedule, &progress); err != nil {
		return err
	}
	if schedule.ArrangedCount >= schedule.Capacity {
		return repository.ErrScheduleFull
	}
	for _, existing := range r.registrations {
		if existing.StudentID == reg.StudentID && existing.ScheduleID == reg.ScheduleID {
			return repository.ErrDuplicateRegistration
		}
	}
	schedule.ArrangedCount++
	reg.ID = uuid.NewString()
	reg.ExamResult = models.ExamResultPending
	stored := *reg
	r.registrations[reg.ID] = &stored
	return nil
}

func (r *registrationRepoStub) Delete(ctx context.Context, id string) (*models.ExamRegistration, error) {
	reg, ok := r.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(r.registrations, id)
	if s := r.schedules[reg.ScheduleID]; s.ArrangedCount > 0 {
		s.ArrangedCount--
	}
	return reg, nil
}

func (r *registrationRepoStub) RecordResult(ctx context.Context, id string, apply repository.ResultApplier) (*models.ExamResultOutcome, error) {
	stored, ok := r.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	reg := *stored
	student := *r.students[reg.StudentID]
	progress := *r.progressOf(reg.StudentID)
	effects, err := apply(&reg, r.schedules[reg.ScheduleID], &student, &progress)
	if err != nil {
		return nil, err
	}
	*stored = reg
	r.progress[reg.StudentID] = &progress
	r.warnings = append(r.warnings, effects.Warnings...)
	if effects.EnrollmentStatus != nil {
		r.students[reg.StudentID].EnrollmentStatus = *effects.EnrollmentStatus
	}
	return &models.ExamResultOutcome{Registration: reg, Progress: progress, Warnings: effects.Warnings, EnrollmentStatus: effects.EnrollmentStatus}, nil
}

func newRegistrationServiceForTest() (*ExamRegistrationService, *registrationRepoStub) {
	repo := newRegistrationRepoStub()
	repo.students["stu-1"] = &models.Student{ID: "stu-1", EnrollmentStatus: models.EnrollmentStatusPaid}
	svc := NewExamRegistrationService(repo, nil, nil, &invalidatorStub{}, NewMetricsService())
	svc.now = func() time.Time { return examDay }
	return svc, repo
}

func addSchedule(repo *registrationRepoStub, subject models.ExamSubject, capacity, arranged int) string {
	id := uuid.NewString()
	repo.schedules[id] = &models.ExamSchedule{ID: id, Subject: subject, Capacity: capacity, ArrangedCount: arranged}
	return id
}

func TestRegistrationServiceRejectsFullSchedule(t *testing.T) {
	svc, repo := newRegistrationServiceForTest()
	scheduleID := addSchedule(repo, models.SubjectTwo, 5, 5)

	_, err := svc.Create(context.Background(), dto.CreateRegistrationRequest{StudentID: "stu-1", ScheduleID: scheduleID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, 5, repo.schedules[scheduleID].ArrangedCount)
	assert.Empty(t, repo.registrations)
}

func TestRegistrationServiceCreateAndDelete(t *testing.T) {
	svc, repo := newRegistrationServiceForTest()
	scheduleID := addSchedule(repo, models.SubjectOne, 5, 0)

	reg, err := svc.Create(context.Background(), dto.CreateRegistrationRequest{StudentID: "stu-1", ScheduleID: scheduleID})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.schedules[scheduleID].ArrangedCount)

	_, err = svc.Create(context.Background(), dto.CreateRegistrationRequest{StudentID: "stu-1", ScheduleID: scheduleID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), reg.ID))
	assert.Equal(t, 0, repo.schedules[scheduleID].ArrangedCount)

	err = svc.Delete(context.Background(), reg.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegistrationServiceFifthFailureDisqualifies(t *testing.T) {
	svc, repo := newRegistrationServiceForTest()
	ctx := context.Background()

	var outcomes []*models.ExamResultOutcome
	for i := 0; i < 5; i++ {
		scheduleID := addSchedule(repo, models.SubjectThree, 10, 0)
		reg, err := svc.Create(ctx, dto.CreateRegistrationRequest{StudentID: "stu-1", ScheduleID: scheduleID})
		require.NoError(t, err)
		outcome, err := svc.RecordResult(ctx, reg.ID, dto.RecordResultRequest{ExamResult: string(models.ExamResultFail)})
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
	}

	assert.Empty(t, outcomes[1].Warnings)
	assert.Equal(t, models.WarningTypeThirdFailure, outcomes[2].Warnings[0].WarningType)
	assert.Equal(t, models.WarningTypeFourthFailure, outcomes[3].Warnings[0].WarningType)
	require.NotNil(t, outcomes[4].EnrollmentStatus)
	assert.Equal(t, models.EnrollmentStatusDisqualified, *outcomes[4].EnrollmentStatus)
	assert.Equal(t, models.EnrollmentStatusDisqualified, repo.students["stu-1"].EnrollmentStatus)
	assert.Len(t, repo.warnings, 3)

	scheduleID := addSchedule(repo, models.SubjectOne, 10, 0)
	_, err := svc.Create(ctx, dto.CreateRegistrationRequest{StudentID: "stu-1", ScheduleID: scheduleID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, appErrors.FromError(err).Code)
}

func TestRegistrationServiceResultRecordedOnce(t *testing.T) {
	svc, repo := newRegistrationServiceForTest()
	scheduleID := addSchedule(repo, models.SubjectOne, 10, 0)
	reg, err := svc.Create(context.Background(), dto.CreateRegistrationRequest{StudentID: "stu-1", ScheduleID: scheduleID})
	require.NoError(t, err)

	score := 92
	outcome, err := svc.RecordResult(context.Background(), reg.ID, dto.RecordResultRequest{ExamResult: string(models.ExamResultPass), Score: &score})
	require.NoError(t, err)
	assert.Equal(t, 25, outcome.Progress.TotalProgress)
	require.NotNil(t, outcome.Registration.ResultDate)
	assert.Equal(t, examDay, *outcome.Registration.ResultDate)

	_, err = svc.RecordResult(context.Background(), reg.ID, dto.RecordResultRequest{ExamResult: string(models.ExamResultFail)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 25, repo.progress["stu-1"].TotalProgress)
}

func TestRegistrationServiceRejectsUnknownResult(t *testing.T) {
	svc, _ := newRegistrationServiceForTest()
	_, err := svc.RecordResult(context.Background(), "any", dto.RecordResultRequest{ExamResult: "maybe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
