package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type scheduleRepoStub struct {
	items         map[string]*models.ExamSchedule
	registrations map[string]int
	deleted       []string
}

func (r *scheduleRepoStub) List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamSchedule, int, error) {
	return nil, 0, nil
}

func (r *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (r *scheduleRepoStub) Create(ctx context.Context, schedule *models.ExamSchedule) error {
	schedule.ID = "sch-new"
	r.items[schedule.ID] = schedule
	return nil
}

func (r *scheduleRepoStub) Update(ctx context.Context, schedule *models.ExamSchedule) error {
	r.items[schedule.ID] = schedule
	return nil
}

func (r *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	delete(r.items, id)
	return nil
}

func (r *scheduleRepoStub) CountRegistrations(ctx context.Context, id string) (int, error) {
	return r.registrations[id], nil
}

func newScheduleServiceForTest() (*ExamScheduleService, *scheduleRepoStub) {
	repo := &scheduleRepoStub{
		items: map[string]*models.ExamSchedule{
			"sch-1": {ID: "sch-1", Subject: models.SubjectTwo, Capacity: 10, ArrangedCount: 4},
		},
		registrations: map[string]int{"sch-1": 4},
	}
	return NewExamScheduleService(repo, nil, nil), repo
}

func scheduleRequest(subject, capacity int) dto.ExamScheduleRequest {
	return dto.ExamScheduleRequest{Subject: subject, ExamDate: "2025-04-12", Location: "考场 A", Capacity: capacity}
}

func TestExamScheduleCreateStartsEmpty(t *testing.T) {
	svc, _ := newScheduleServiceForTest()

	item, err := svc.Create(context.Background(), scheduleRequest(3, 20))
	require.NoError(t, err)
	assert.Equal(t, models.SubjectThree, item.Subject)
	assert.Zero(t, item.ArrangedCount)
	assert.Equal(t, "2025-04-12", item.ExamDate.Format(dateLayout))
}

func TestExamScheduleCreateValidates(t *testing.T) {
	svc, _ := newScheduleServiceForTest()

	_, err := svc.Create(context.Background(), scheduleRequest(5, 20))
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Create(context.Background(), scheduleRequest(1, 0))
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestExamScheduleUpdateKeepsArrangedCount(t *testing.T) {
	svc, repo := newScheduleServiceForTest()

	_, err := svc.Update(context.Background(), "sch-1", scheduleRequest(2, 3))
	assertAppCode(t, err, appErrors.ErrConflict.Code)

	_, err = svc.Update(context.Background(), "sch-1", scheduleRequest(3, 10))
	assertAppCode(t, err, appErrors.ErrConflict.Code)

	item, err := svc.Update(context.Background(), "sch-1", scheduleRequest(2, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, item.ArrangedCount)
	assert.Equal(t, 4, repo.items["sch-1"].Capacity)
}

func TestExamScheduleDeleteRequiresNoRegistrations(t *testing.T) {
	svc, repo := newScheduleServiceForTest()

	err := svc.Delete(context.Background(), "sch-1")
	assertAppCode(t, err, appErrors.ErrConflict.Code)

	repo.registrations["sch-1"] = 0
	require.NoError(t, svc.Delete(context.Background(), "sch-1"))
	assert.Equal(t, []string{"sch-1"}, repo.deleted)

	err = svc.Delete(context.Background(), "missing")
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}
