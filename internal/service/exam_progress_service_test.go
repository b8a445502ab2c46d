package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type progressRepoStub struct {
	rows map[string]*models.ExamProgress
}

func (r *progressRepoStub) Ensure(ctx context.Context, studentID string) (*models.ExamProgress, error) {
	if p, ok := r.rows[studentID]; ok {
		return p, nil
	}
	p := models.NewExamProgress(studentID)
	r.rows[studentID] = p
	return p, nil
}

func (r *progressRepoStub) List(ctx context.Context, filter models.ExamProgressFilter) ([]models.ExamProgress, int, error) {
	return nil, len(r.rows), nil
}

type warningRepoStub struct {
	items   map[string]*models.ExamWarningLog
	handled []string
}

func (r *warningRepoStub) List(ctx context.Context, filter models.ExamWarningFilter) ([]models.ExamWarningDetail, int, error) {
	return nil, len(r.items), nil
}

func (r *warningRepoStub) FindByID(ctx context.Context, id string) (*models.ExamWarningLog, error) {
	w, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *w
	return &clone, nil
}

func (r *warningRepoStub) MarkHandled(ctx context.Context, id, handledBy, notes string, at time.Time) error {
	r.handled = append(r.handled, id)
	r.items[id].IsHandled = true
	return nil
}

type studentLookupStub map[string]*models.StudentDetail

func (s studentLookupStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if st, ok := s[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func newProgressServiceForTest() (*ExamProgressService, *progressRepoStub, *warningRepoStub, *invalidatorStub) {
	progress := &progressRepoStub{rows: map[string]*models.ExamProgress{}}
	warnings := &warningRepoStub{items: map[string]*models.ExamWarningLog{
		"w-1": {ID: "w-1", StudentID: "stu-1", Subject: models.SubjectTwo, WarningType: models.WarningTypeThirdFailure, FailedCount: 3},
	}}
	students := studentLookupStub{"stu-1": {Student: models.Student{ID: "stu-1", Name: "李四"}}}
	inv := &invalidatorStub{}
	svc := NewExamProgressService(progress, warnings, students, nil, nil, inv)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc, progress, warnings, inv
}

func TestExamProgressGetCreatesInitialRow(t *testing.T) {
	svc, repo, _, _ := newProgressServiceForTest()

	p, err := svc.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "李四", p.StudentName)
	assert.Equal(t, models.QualificationNormal, p.ExamQualification)
	assert.Zero(t, p.TotalProgress)
	assert.Contains(t, repo.rows, "stu-1")

	_, err = svc.Get(context.Background(), "ghost")
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
	assert.NotContains(t, repo.rows, "ghost")
}

func TestHandleWarningOnlyOnce(t *testing.T) {
	svc, _, warnings, inv := newProgressServiceForTest()

	w, err := svc.HandleWarning(context.Background(), "w-1", dto.HandleWarningRequest{HandleNotes: "called parent", HandledBy: "registrar"})
	require.NoError(t, err)
	assert.True(t, w.IsHandled)
	require.NotNil(t, w.HandledAt)
	assert.Equal(t, "2025-03-15", w.HandledAt.Format(dateLayout))
	assert.Equal(t, "registrar", *w.HandledBy)
	assert.Equal(t, 1, inv.calls)

	_, err = svc.HandleWarning(context.Background(), "w-1", dto.HandleWarningRequest{HandledBy: "registrar"})
	assertAppCode(t, err, appErrors.ErrImmutable.Code)
	assert.Len(t, warnings.handled, 1)
}

func TestHandleWarningMissing(t *testing.T) {
	svc, _, _, _ := newProgressServiceForTest()

	_, err := svc.HandleWarning(context.Background(), "nope", dto.HandleWarningRequest{})
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}
