package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/pkg/response"
)

type coachService interface {
	List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Coach, error)
	Create(ctx context.Context, req dto.CoachRequest) (*models.Coach, error)
	Update(ctx context.Context, id string, req dto.CoachRequest) (*models.Coach, error)
	Delete(ctx context.Context, id string) error
}

// CoachHandler exposes coach endpoints.
type CoachHandler struct {
	coaches coachService
}

// NewCoachHandler constructs CoachHandler.
func NewCoachHandler(coaches coachService) *CoachHandler {
	return &CoachHandler{coaches: coaches}
}

// List godoc
// @Summary List coaches
// @Tags Coaches
// @Produce json
// @Param search query string false "Search by name or phone"
// @Param status query string false "在职|离职"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "name|hire_date|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /coaches [get]
func (h *CoachHandler) List(c *gin.Context) {
	filter := models.CoachFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		Status:      models.CoachStatus(c.Query("status")),
		ListOptions: listOptions(c),
	}
	items, pagination, err := h.coaches.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Get godoc
// @Summary Get coach
// @Tags Coaches
// @Produce json
// @Param id path string true "Coach ID"
// @Success 200 {object} response.Envelope
// @Router /coaches/{id} [get]
func (h *CoachHandler) Get(c *gin.Context) {
	item, err := h.coaches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Create coach
// @Tags Coaches
// @Accept json
// @Produce json
// @Param payload body dto.CoachRequest true "Coach payload"
// @Success 201 {object} response.Envelope
// @Router /coaches [post]
func (h *CoachHandler) Create(c *gin.Context) {
	var req dto.CoachRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.coaches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, "coach created")
}

// Update godoc
// @Summary Update coach
// @Tags Coaches
// @Accept json
// @Produce json
// @Param id path string true "Coach ID"
// @Param payload body dto.CoachRequest true "Coach payload"
// @Success 200 {object} response.Envelope
// @Router /coaches/{id} [put]
func (h *CoachHandler) Update(c *gin.Context) {
	var req dto.CoachRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.coaches.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "coach updated")
}

// Delete godoc
// @Summary Delete coach
// @Tags Coaches
// @Param id path string true "Coach ID"
// @Success 204
// @Router /coaches/{id} [delete]
func (h *CoachHandler) Delete(c *gin.Context) {
	if err := h.coaches.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
