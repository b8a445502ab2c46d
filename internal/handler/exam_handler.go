package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/pkg/response"
)

type examScheduleService interface {
	List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamSchedule, models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ExamSchedule, error)
	Create(ctx context.Context, req dto.ExamScheduleRequest) (*models.ExamSchedule, error)
	Update(ctx context.Context, id string, req dto.ExamScheduleRequest) (*models.ExamSchedule, error)
	Delete(ctx context.Context, id string) error
}

type examRegistrationService interface {
	List(ctx context.Context, filter models.ExamRegistrationFilter) ([]models.ExamRegistrationDetail, models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ExamRegistrationDetail, error)
	Create(ctx context.Context, req dto.CreateRegistrationRequest) (*models.ExamRegistration, error)
	Delete(ctx context.Context, id string) error
	RecordResult(ctx context.Context, id string, req dto.RecordResultRequest) (*models.ExamResultOutcome, error)
}

type examProgressService interface {
	Get(ctx context.Context, studentID string) (*models.ExamProgress, error)
	List(ctx context.Context, filter models.ExamProgressFilter) ([]models.ExamProgress, models.Pagination, error)
	ListWarnings(ctx context.Context, filter models.ExamWarningFilter) ([]models.ExamWarningDetail, models.Pagination, error)
	HandleWarning(ctx context.Context, id string, req dto.HandleWarningRequest) (*models.ExamWarningLog, error)
}

// ExamHandler exposes schedules, registrations, progress and warnings.
type ExamHandler struct {
	schedules     examScheduleService
	registrations examRegistrationService
	progress      examProgressService
}

// NewExamHandler constructs ExamHandler.
func NewExamHandler(schedules examScheduleService, registrations examRegistrationService, progress examProgressService) *ExamHandler {
	return &ExamHandler{schedules: schedules, registrations: registrations, progress: progress}
}

// ListSchedules godoc
// @Summary List exam schedules
// @Tags Exams
// @Produce json
// @Param subject query int false "1-4"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "exam_date|subject|capacity|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules [get]
func (h *ExamHandler) ListSchedules(c *gin.Context) {
	filter := models.ExamScheduleFilter{ListOptions: listOptions(c)}
	if subject, err := strconv.Atoi(c.Query("subject")); err == nil {
		filter.Subject = models.ExamSubject(subject)
	}
	var err error
	if filter.DateFrom, err = queryDate(c, "date_from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.DateTo, err = queryDate(c, "date_to"); err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// GetSchedule godoc
// @Summary Get exam schedule
// @Tags Exams
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id} [get]
func (h *ExamHandler) GetSchedule(c *gin.Context) {
	item, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// CreateSchedule godoc
// @Summary Create exam schedule
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.ExamScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /exam-schedules [post]
func (h *ExamHandler) CreateSchedule(c *gin.Context) {
	var req dto.ExamScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, "exam schedule created")
}

// UpdateSchedule godoc
// @Summary Update exam schedule
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ExamScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id} [put]
func (h *ExamHandler) UpdateSchedule(c *gin.Context) {
	var req dto.ExamScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "exam schedule updated")
}

// DeleteSchedule godoc
// @Summary Delete exam schedule
// @Tags Exams
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /exam-schedules/{id} [delete]
func (h *ExamHandler) DeleteSchedule(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListRegistrations godoc
// @Summary List exam registrations
// @Tags Exams
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param schedule_id query string false "Filter by schedule"
// @Param exam_result query string false "pending|通过|未通过"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "exam_date|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /exam-registrations [get]
func (h *ExamHandler) ListRegistrations(c *gin.Context) {
	filter := models.ExamRegistrationFilter{
		StudentID:   c.Query("student_id"),
		ScheduleID:  c.Query("schedule_id"),
		ExamResult:  models.ExamResult(c.Query("exam_result")),
		ListOptions: listOptions(c),
	}
	items, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// GetRegistration godoc
// @Summary Get exam registration
// @Tags Exams
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /exam-registrations/{id} [get]
func (h *ExamHandler) GetRegistration(c *gin.Context) {
	item, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// CreateRegistration godoc
// @Summary Register a student for an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exam-registrations [post]
func (h *ExamHandler) CreateRegistration(c *gin.Context) {
	var req dto.CreateRegistrationRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.registrations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, "registration created")
}

// DeleteRegistration godoc
// @Summary Cancel a registration
// @Tags Exams
// @Param id path string true "Registration ID"
// @Success 204
// @Router /exam-registrations/{id} [delete]
func (h *ExamHandler) DeleteRegistration(c *gin.Context) {
	if err := h.registrations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordResult godoc
// @Summary Record an exam result
// @Description Updates subject progress and may raise warnings or revoke the qualification.
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.RecordResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exam-registrations/{id}/result [put]
func (h *ExamHandler) RecordResult(c *gin.Context) {
	var req dto.RecordResultRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Operator = operator(c)
	outcome, err := h.registrations.RecordResult(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, "result recorded")
}

// GetProgress godoc
// @Summary Exam progress of a student
// @Tags Exams
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /exam-progress/{studentId} [get]
func (h *ExamHandler) GetProgress(c *gin.Context) {
	item, err := h.progress.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// ListProgress godoc
// @Summary List exam progress
// @Tags Exams
// @Produce json
// @Param qualification query string false "正常|已作废"
// @Param search query string false "Student name"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "total_progress|updated_at|student_name"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /exam-progress [get]
func (h *ExamHandler) ListProgress(c *gin.Context) {
	filter := models.ExamProgressFilter{
		Qualification: models.Qualification(c.Query("qualification")),
		Search:        strings.TrimSpace(c.Query("search")),
		ListOptions:   listOptions(c),
	}
	items, pagination, err := h.progress.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// ListWarnings godoc
// @Summary List exam warnings
// @Tags Exams
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param warning_type query string false "3次预警|4次预警|资格作废"
// @Param is_handled query bool false "Handled state"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "created_at|failed_count"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /exam-warnings [get]
func (h *ExamHandler) ListWarnings(c *gin.Context) {
	filter := models.ExamWarningFilter{
		StudentID:   c.Query("student_id"),
		WarningType: models.WarningType(c.Query("warning_type")),
		IsHandled:   queryBool(c, "is_handled"),
		ListOptions: listOptions(c),
	}
	items, pagination, err := h.progress.ListWarnings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// HandleWarning godoc
// @Summary Mark a warning handled
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Warning ID"
// @Param payload body dto.HandleWarningRequest true "Handling notes"
// @Success 200 {object} response.Envelope
// @Router /exam-warnings/{id}/handle [put]
func (h *ExamHandler) HandleWarning(c *gin.Context) {
	var req dto.HandleWarningRequest
	if !bindJSON(c, &req) {
		return
	}
	req.HandledBy = operator(c)
	item, err := h.progress.HandleWarning(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "warning handled")
}
