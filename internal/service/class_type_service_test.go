package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type classTypeRepoStub struct {
	items    map[string]*models.ClassType
	students map[string]int
	logs     []models.ClassTypePriceLog
}

func (r *classTypeRepoStub) List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, int, error) {
	return nil, len(r.items), nil
}

func (r *classTypeRepoStub) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (r *classTypeRepoStub) Create(ctx context.Context, item *models.ClassType) error {
	for _, existing := range r.items {
		if existing.Name == item.Name {
			return repository.ErrDuplicateKey
		}
	}
	item.ID = "ct-new"
	r.items[item.ID] = item
	return nil
}

func (r *classTypeRepoStub) Update(ctx context.Context, item *models.ClassType) error {
	r.items[item.ID] = item
	return nil
}

func (r *classTypeRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.items, id)
	return nil
}

func (r *classTypeRepoStub) CountStudents(ctx context.Context, id string) (int, error) {
	return r.students[id], nil
}

func (r *classTypeRepoStub) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, operator string) (*models.ClassTypePriceLog, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	entry := models.ClassTypePriceLog{ClassTypeID: id, OldPrice: item.Price, NewPrice: price, Operator: operator}
	item.Price = price
	r.logs = append(r.logs, entry)
	return &entry, nil
}

func (r *classTypeRepoStub) ListPriceLogs(ctx context.Context, id string) ([]models.ClassTypePriceLog, error) {
	return r.logs, nil
}

func newClassTypeServiceForTest() (*ClassTypeService, *classTypeRepoStub) {
	repo := &classTypeRepoStub{
		items:    map[string]*models.ClassType{"ct-1": {ID: "ct-1", Name: "C1 手动挡", Price: decimal.NewFromInt(3800), Active: true}},
		students: map[string]int{"ct-1": 2},
	}
	return NewClassTypeService(repo, nil, nil), repo
}

func TestClassTypeCreate(t *testing.T) {
	svc, _ := newClassTypeServiceForTest()

	item, err := svc.Create(context.Background(), dto.CreateClassTypeRequest{Name: "C2 自动挡", Price: decimal.RequireFromString("4200.50")})
	require.NoError(t, err)
	assert.True(t, item.Active)

	_, err = svc.Create(context.Background(), dto.CreateClassTypeRequest{Name: "C1 手动挡", Price: decimal.NewFromInt(1)})
	assertAppCode(t, err, appErrors.ErrConflict.Code)

	_, err = svc.Create(context.Background(), dto.CreateClassTypeRequest{Name: "VIP", Price: decimal.RequireFromString("1.005")})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestClassTypeUpdatePriceLogsChange(t *testing.T) {
	svc, repo := newClassTypeServiceForTest()

	entry, err := svc.UpdatePrice(context.Background(), "ct-1", dto.UpdatePriceRequest{Price: decimal.NewFromInt(4000), Operator: "admin"})
	require.NoError(t, err)
	assert.True(t, entry.OldPrice.Equal(decimal.NewFromInt(3800)))
	assert.True(t, entry.NewPrice.Equal(decimal.NewFromInt(4000)))
	assert.Len(t, repo.logs, 1)

	_, err = svc.UpdatePrice(context.Background(), "ct-1", dto.UpdatePriceRequest{Price: decimal.NewFromInt(-1)})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.UpdatePrice(context.Background(), "ghost", dto.UpdatePriceRequest{Price: decimal.NewFromInt(1)})
	assertAppCode(t, err, appErrors.ErrNotFound.Code)
}

func TestClassTypeDeleteInUse(t *testing.T) {
	svc, repo := newClassTypeServiceForTest()

	assertAppCode(t, svc.Delete(context.Background(), "ct-1"), appErrors.ErrConflict.Code)

	repo.students["ct-1"] = 0
	require.NoError(t, svc.Delete(context.Background(), "ct-1"))
	assert.Empty(t, repo.items)
}
