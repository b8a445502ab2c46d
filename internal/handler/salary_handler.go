package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/service"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
	"github.com/noah-isme/drivingschool-api/pkg/response"
)

type salaryService interface {
	ListConfigs(ctx context.Context, filter models.SalaryConfigFilter) ([]models.SalaryConfig, models.Pagination, error)
	CreateConfig(ctx context.Context, req dto.SalaryConfigRequest) (*models.SalaryConfig, error)
	UpdateConfig(ctx context.Context, id string, req dto.SalaryConfigRequest) (*models.SalaryConfig, error)
	DeleteConfig(ctx context.Context, id string) error
	Generate(ctx context.Context, req dto.GenerateSalaryRequest) (*models.PayrollGenerateResult, error)
	Refresh(ctx context.Context, req dto.RefreshSalaryRequest) (*models.PayrollRefreshResult, error)
	List(ctx context.Context, filter models.CoachSalaryFilter) ([]models.CoachSalaryDetail, models.Pagination, error)
	Get(ctx context.Context, id string) (*models.CoachSalaryDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateSalaryRequest) (*models.CoachSalaryDetail, error)
	MarkPaid(ctx context.Context, id string) (*models.CoachSalaryDetail, error)
	Delete(ctx context.Context, id string) error
}

type payrollExporter interface {
	PayrollSheet(ctx context.Context, month string, format service.ExportFormat) (*service.ExportFile, error)
}

// SalaryHandler exposes coach payroll endpoints.
type SalaryHandler struct {
	salaries salaryService
	exports  payrollExporter
}

// NewSalaryHandler constructs SalaryHandler.
func NewSalaryHandler(salaries salaryService, exports payrollExporter) *SalaryHandler {
	return &SalaryHandler{salaries: salaries, exports: exports}
}

// ListConfigs godoc
// @Summary List payroll rate configs
// @Tags Payroll
// @Produce json
// @Param config_type query string false "base_daily|subject2_commission|subject3_commission|recruitment_commission"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "effective_date|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /coach-salary/configs [get]
func (h *SalaryHandler) ListConfigs(c *gin.Context) {
	filter := models.SalaryConfigFilter{
		ConfigType:  models.SalaryConfigType(c.Query("config_type")),
		ListOptions: listOptions(c),
	}
	items, pagination, err := h.salaries.ListConfigs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// CreateConfig godoc
// @Summary Create payroll rate config
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.SalaryConfigRequest true "Config payload"
// @Success 201 {object} response.Envelope
// @Router /coach-salary/configs [post]
func (h *SalaryHandler) CreateConfig(c *gin.Context) {
	var req dto.SalaryConfigRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.salaries.CreateConfig(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, "salary config created")
}

// UpdateConfig godoc
// @Summary Update payroll rate config
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Config ID"
// @Param payload body dto.SalaryConfigRequest true "Config payload"
// @Success 200 {object} response.Envelope
// @Router /coach-salary/configs/{id} [put]
func (h *SalaryHandler) UpdateConfig(c *gin.Context) {
	var req dto.SalaryConfigRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.salaries.UpdateConfig(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "salary config updated")
}

// DeleteConfig godoc
// @Summary Delete payroll rate config
// @Tags Payroll
// @Param id path string true "Config ID"
// @Success 204
// @Router /coach-salary/configs/{id} [delete]
func (h *SalaryHandler) DeleteConfig(c *gin.Context) {
	if err := h.salaries.DeleteConfig(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Generate godoc
// @Summary Generate monthly salaries
// @Description Creates a pending record for every active coach without one for the month.
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSalaryRequest true "Month and attendance default"
// @Success 200 {object} response.Envelope
// @Router /coach-salary/generate [post]
func (h *SalaryHandler) Generate(c *gin.Context) {
	var req dto.GenerateSalaryRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.salaries.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, "salaries generated")
}

// Refresh godoc
// @Summary Refresh monthly salaries
// @Description Recomputes rates and commissions of pending records. Paid records are skipped.
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.RefreshSalaryRequest true "Month"
// @Success 200 {object} response.Envelope
// @Router /coach-salary/refresh [post]
func (h *SalaryHandler) Refresh(c *gin.Context) {
	var req dto.RefreshSalaryRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.salaries.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, "salaries refreshed")
}

// List godoc
// @Summary List salary records
// @Tags Payroll
// @Produce json
// @Param month query string false "YYYY-MM"
// @Param coach_id query string false "Filter by coach"
// @Param status query string false "pending|paid"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "month|gross_salary|coach_name|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /coach-salary [get]
func (h *SalaryHandler) List(c *gin.Context) {
	filter := models.CoachSalaryFilter{
		Month:       c.Query("month"),
		CoachID:     c.Query("coach_id"),
		Status:      models.SalaryStatus(c.Query("status")),
		ListOptions: listOptions(c),
	}
	items, pagination, err := h.salaries.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Get godoc
// @Summary Get salary record
// @Tags Payroll
// @Produce json
// @Param id path string true "Salary ID"
// @Success 200 {object} response.Envelope
// @Router /coach-salary/{id} [get]
func (h *SalaryHandler) Get(c *gin.Context) {
	item, err := h.salaries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Update godoc
// @Summary Edit a pending salary record
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Salary ID"
// @Param payload body dto.UpdateSalaryRequest true "Manual fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /coach-salary/{id} [put]
func (h *SalaryHandler) Update(c *gin.Context) {
	var req dto.UpdateSalaryRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.salaries.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "salary updated")
}

// Pay godoc
// @Summary Mark a salary record paid
// @Tags Payroll
// @Produce json
// @Param id path string true "Salary ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /coach-salary/{id}/pay [put]
func (h *SalaryHandler) Pay(c *gin.Context) {
	item, err := h.salaries.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "salary paid")
}

// Delete godoc
// @Summary Delete a pending salary record
// @Tags Payroll
// @Param id path string true "Salary ID"
// @Success 204
// @Router /coach-salary/{id} [delete]
func (h *SalaryHandler) Delete(c *gin.Context) {
	if err := h.salaries.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the payroll sheet of a month
// @Tags Payroll
// @Produce application/octet-stream
// @Param month query string true "YYYY-MM"
// @Param format query string false "xlsx|pdf|csv"
// @Success 200 {file} file
// @Router /coach-salary/export [get]
func (h *SalaryHandler) Export(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatXLSX)))
	file, err := h.exports.PayrollSheet(c.Request.Context(), month, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file.Filename, file.ContentType, file.Data)
}
