package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/service"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type salaryServiceMock struct {
	lastGenerate dto.GenerateSalaryRequest
	paidID       string
	err          error
}

func (m *salaryServiceMock) ListConfigs(ctx context.Context, filter models.SalaryConfigFilter) ([]models.SalaryConfig, models.Pagination, error) {
	return nil, filter.Paginate(0), m.err
}

func (m *salaryServiceMock) CreateConfig(ctx context.Context, req dto.SalaryConfigRequest) (*models.SalaryConfig, error) {
	return &models.SalaryConfig{}, m.err
}

func (m *salaryServiceMock) UpdateConfig(ctx context.Context, id string, req dto.SalaryConfigRequest) (*models.SalaryConfig, error) {
	return &models.SalaryConfig{}, m.err
}

func (m *salaryServiceMock) DeleteConfig(ctx context.Context, id string) error {
	return m.err
}

func (m *salaryServiceMock) Generate(ctx context.Context, req dto.GenerateSalaryRequest) (*models.PayrollGenerateResult, error) {
	m.lastGenerate = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.PayrollGenerateResult{Month: req.Month, Generated: 3}, nil
}

func (m *salaryServiceMock) Refresh(ctx context.Context, req dto.RefreshSalaryRequest) (*models.PayrollRefreshResult, error) {
	return &models.PayrollRefreshResult{}, m.err
}

func (m *salaryServiceMock) List(ctx context.Context, filter models.CoachSalaryFilter) ([]models.CoachSalaryDetail, models.Pagination, error) {
	return nil, filter.Paginate(0), m.err
}

func (m *salaryServiceMock) Get(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	return &models.CoachSalaryDetail{}, m.err
}

func (m *salaryServiceMock) Update(ctx context.Context, id string, req dto.UpdateSalaryRequest) (*models.CoachSalaryDetail, error) {
	return &models.CoachSalaryDetail{}, m.err
}

func (m *salaryServiceMock) MarkPaid(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	m.paidID = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.CoachSalaryDetail{}, nil
}

func (m *salaryServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

type payrollExporterMock struct {
	month  string
	format service.ExportFormat
}

func (m *payrollExporterMock) PayrollSheet(ctx context.Context, month string, format service.ExportFormat) (*service.ExportFile, error) {
	m.month = month
	m.format = format
	return &service.ExportFile{Filename: "coach_salary_" + month + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func TestSalaryHandlerGenerate(t *testing.T) {
	svc := &salaryServiceMock{}
	h := NewSalaryHandler(svc, &payrollExporterMock{})

	c, w := newTestContext(http.MethodPost, "/coach-salary/generate", `{"month":"2025-03","attendance_days":20}`, cashier)
	h.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03", svc.lastGenerate.Month)
	require.NotNil(t, svc.lastGenerate.AttendanceDays)
	assert.Equal(t, 20, *svc.lastGenerate.AttendanceDays)
	assert.Contains(t, w.Body.String(), `"generated":3`)
}

func TestSalaryHandlerPayImmutableRecord(t *testing.T) {
	svc := &salaryServiceMock{err: appErrors.Clone(appErrors.ErrImmutable, "salary record already paid")}
	h := NewSalaryHandler(svc, &payrollExporterMock{})

	c, w := newTestContext(http.MethodPut, "/coach-salary/sal-1/pay", "", cashier)
	c.Params = gin.Params{{Key: "id", Value: "sal-1"}}
	h.Pay(c)

	assert.Equal(t, "sal-1", svc.paidID)
	assert.Equal(t, appErrors.ErrImmutable.Status, w.Code)
	assert.Equal(t, appErrors.ErrImmutable.Code, decodeEnvelope(t, w).Code)
}

func TestSalaryHandlerExportRequiresMonth(t *testing.T) {
	exports := &payrollExporterMock{}
	h := NewSalaryHandler(&salaryServiceMock{}, exports)

	c, w := newTestContext(http.MethodGet, "/coach-salary/export", "", cashier)
	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, exports.month)
}

func TestSalaryHandlerExportPDF(t *testing.T) {
	exports := &payrollExporterMock{}
	h := NewSalaryHandler(&salaryServiceMock{}, exports)

	c, w := newTestContext(http.MethodGet, "/coach-salary/export?month=2025-03&format=pdf", "", cashier)
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatPDF, exports.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "coach_salary_2025-03.pdf")
}
