package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type studentRepoStub struct {
	students map[string]*models.Student
	seq      int
	// beforeUpdate runs between the service's read and the write.
	beforeUpdate func()
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range r.students {
		out = append(out, models.StudentDetail{Student: *s})
	}
	return out, len(out), nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: *s}, nil
}

func (r *studentRepoStub) ExistsByIDCard(ctx context.Context, idCard, excludeID string) (bool, error) {
	for _, s := range r.students {
		if s.IDCard == idCard && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	r.seq++
	student.ID = fmt.Sprintf("stu-%d", r.seq)
	copied := *student
	r.students[student.ID] = &copied
	return nil
}

func (r *studentRepoStub) Update(ctx context.Context, student *models.Student, change *repository.EnrollmentTransition) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	stored, ok := r.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if change != nil {
		if stored.PaymentStatus != models.PaymentStatusUnpaid || stored.EnrollmentStatus != change.From {
			return repository.ErrRecordLocked
		}
		stored.EnrollmentStatus = change.To
		student.EnrollmentStatus = change.To
	}
	stored.Name = student.Name
	stored.Gender = student.Gender
	stored.IDCard = student.IDCard
	stored.Phone = student.Phone
	stored.CoachID = student.CoachID
	stored.Notes = student.Notes
	return nil
}

func (r *studentRepoStub) Delete(ctx context.Context, id string) error {
	s, ok := r.students[id]
	if !ok || s.PaymentStatus != models.PaymentStatusUnpaid {
		return repository.ErrRecordLocked
	}
	delete(r.students, id)
	return nil
}

type classTypeLookupStub map[string]*models.ClassType

func (c classTypeLookupStub) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	ct, ok := c[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ct, nil
}

type coachLookupStub map[string]*models.Coach

func (c coachLookupStub) FindByID(ctx context.Context, id string) (*models.Coach, error) {
	coach, ok := c[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return coach, nil
}

func newStudentServiceForTest() (*StudentService, *studentRepoStub, *invalidatorStub) {
	repo := &studentRepoStub{students: map[string]*models.Student{}}
	classTypes := classTypeLookupStub{
		"c1":  {ID: "c1", Name: "C1 手动挡", Price: dec("3800"), Active: true},
		"old": {ID: "old", Name: "停招班", Price: dec("2000"), Active: false},
	}
	coaches := coachLookupStub{"coach-1": {ID: "coach-1", Name: "王教练", Status: models.CoachStatusActive}}
	summary := &invalidatorStub{}
	svc := NewStudentService(repo, classTypes, coaches, nil, nil, summary)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }
	return svc, repo, summary
}

func createRequest(idCard string) dto.CreateStudentRequest {
	return dto.CreateStudentRequest{Name: "张三", IDCard: idCard, ClassTypeID: "c1"}
}

func TestStudentCreateSnapshotsClassTypePrice(t *testing.T) {
	svc, _, summary := newStudentServiceForTest()

	student, err := svc.Create(context.Background(), createRequest("110101199001011234"))
	require.NoError(t, err)
	assert.True(t, dec("3800").Equal(student.ContractAmount))
	assert.True(t, dec("3800").Equal(student.DebtAmount))
	assert.True(t, student.ActualAmount.IsZero())
	assert.Equal(t, models.PaymentStatusUnpaid, student.PaymentStatus)
	assert.Equal(t, models.EnrollmentStatusUnpaid, student.EnrollmentStatus)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), student.EnrollmentDate)
	assertDebtInvariant(t, student)
	assert.Equal(t, 1, summary.calls)
}

func TestStudentCreateRejections(t *testing.T) {
	svc, _, _ := newStudentServiceForTest()
	ctx := context.Background()

	_, err := svc.Create(ctx, createRequest("110101199001011234"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, createRequest("110101199001011234"))
	assertAppCode(t, err, appErrors.ErrConflict.Code)

	inactive := createRequest("110101199001015678")
	inactive.ClassTypeID = "old"
	_, err = svc.Create(ctx, inactive)
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	missingCoach := createRequest("110101199001019999")
	ghost := "ghost"
	missingCoach.CoachID = &ghost
	_, err = svc.Create(ctx, missingCoach)
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}

func TestStudentUpdateEnrollmentStatusRules(t *testing.T) {
	svc, repo, _ := newStudentServiceForTest()
	ctx := context.Background()
	student, err := svc.Create(ctx, createRequest("110101199001011234"))
	require.NoError(t, err)

	update := dto.UpdateStudentRequest{Name: "张三", IDCard: student.IDCard, EnrollmentStatus: string(models.EnrollmentStatusPaid)}
	_, err = svc.Update(ctx, student.ID, update)
	assertAppCode(t, err, appErrors.ErrInvalidStateTransition.Code)

	update.EnrollmentStatus = string(models.EnrollmentStatusLearning)
	updated, err := svc.Update(ctx, student.ID, update)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusLearning, updated.EnrollmentStatus)

	repo.students[student.ID].PaymentStatus = models.PaymentStatusPartial
	update.EnrollmentStatus = string(models.EnrollmentStatusGraduated)
	_, err = svc.Update(ctx, student.ID, update)
	assertAppCode(t, err, appErrors.ErrInvalidStateTransition.Code)
}

func TestStudentUpdateCannotLeaveDisqualified(t *testing.T) {
	svc, repo, _ := newStudentServiceForTest()
	ctx := context.Background()
	student, err := svc.Create(ctx, createRequest("110101199001011234"))
	require.NoError(t, err)
	repo.students[student.ID].EnrollmentStatus = models.EnrollmentStatusDisqualified

	_, err = svc.Update(ctx, student.ID, dto.UpdateStudentRequest{
		Name: "张三", IDCard: student.IDCard, EnrollmentStatus: string(models.EnrollmentStatusLearning),
	})
	assertAppCode(t, err, appErrors.ErrInvalidStateTransition.Code)
	assert.Equal(t, models.EnrollmentStatusDisqualified, repo.students[student.ID].EnrollmentStatus)

	updated, err := svc.Update(ctx, student.ID, dto.UpdateStudentRequest{Name: "张三", IDCard: student.IDCard, Phone: "13800000000"})
	require.NoError(t, err)
	assert.Equal(t, "13800000000", updated.Phone)
	assert.Equal(t, models.EnrollmentStatusDisqualified, repo.students[student.ID].EnrollmentStatus)
}

func TestStudentUpdateDoesNotOverwriteConcurrentPayment(t *testing.T) {
	svc, repo, _ := newStudentServiceForTest()
	ctx := context.Background()
	student, err := svc.Create(ctx, createRequest("110101199001011234"))
	require.NoError(t, err)
	repo.beforeUpdate = func() {
		repo.students[student.ID].PaymentStatus = models.PaymentStatusPartial
		repo.students[student.ID].EnrollmentStatus = models.EnrollmentStatusPartial
	}

	_, err = svc.Update(ctx, student.ID, dto.UpdateStudentRequest{Name: "张三丰", IDCard: student.IDCard})
	require.NoError(t, err)
	assert.Equal(t, "张三丰", repo.students[student.ID].Name)
	assert.Equal(t, models.EnrollmentStatusPartial, repo.students[student.ID].EnrollmentStatus)

	repo.beforeUpdate = func() {
		repo.students[student.ID].PaymentStatus = models.PaymentStatusUnpaid
		repo.students[student.ID].EnrollmentStatus = models.EnrollmentStatusDisqualified
	}
	repo.students[student.ID].PaymentStatus = models.PaymentStatusUnpaid
	repo.students[student.ID].EnrollmentStatus = models.EnrollmentStatusUnpaid
	_, err = svc.Update(ctx, student.ID, dto.UpdateStudentRequest{
		Name: "张三丰", IDCard: student.IDCard, EnrollmentStatus: string(models.EnrollmentStatusLearning),
	})
	assertAppCode(t, err, appErrors.ErrInvalidStateTransition.Code)
	assert.Equal(t, models.EnrollmentStatusDisqualified, repo.students[student.ID].EnrollmentStatus)
}

func TestStudentUpdateKeepsFinancialFields(t *testing.T) {
	svc, _, _ := newStudentServiceForTest()
	ctx := context.Background()
	student, err := svc.Create(ctx, createRequest("110101199001011234"))
	require.NoError(t, err)

	coach := "coach-1"
	updated, err := svc.Update(ctx, student.ID, dto.UpdateStudentRequest{Name: "张三丰", IDCard: student.IDCard, CoachID: &coach})
	require.NoError(t, err)
	assert.Equal(t, "张三丰", updated.Name)
	require.NotNil(t, updated.CoachID)
	assert.True(t, dec("3800").Equal(updated.ContractAmount))
	assert.Equal(t, models.EnrollmentStatusUnpaid, updated.EnrollmentStatus)
}

func TestStudentDeleteOnlyBeforePayment(t *testing.T) {
	svc, repo, _ := newStudentServiceForTest()
	ctx := context.Background()
	paid, err := svc.Create(ctx, createRequest("110101199001011234"))
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, createRequest("110101199001015678"))
	require.NoError(t, err)
	repo.students[paid.ID].PaymentStatus = models.PaymentStatusPartial

	err = svc.Delete(ctx, paid.ID)
	assertAppCode(t, err, appErrors.ErrConflict.Code)

	require.NoError(t, svc.Delete(ctx, fresh.ID))
	_, err = svc.Get(ctx, fresh.ID)
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}
