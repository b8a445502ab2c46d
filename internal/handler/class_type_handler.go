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

type classTypeService interface {
	List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ClassType, error)
	Create(ctx context.Context, req dto.CreateClassTypeRequest) (*models.ClassType, error)
	Update(ctx context.Context, id string, req dto.UpdateClassTypeRequest) (*models.ClassType, error)
	UpdatePrice(ctx context.Context, id string, req dto.UpdatePriceRequest) (*models.ClassTypePriceLog, error)
	PriceHistory(ctx context.Context, id string) ([]models.ClassTypePriceLog, error)
	Delete(ctx context.Context, id string) error
}

// ClassTypeHandler exposes class type endpoints.
type ClassTypeHandler struct {
	classTypes classTypeService
}

// NewClassTypeHandler constructs ClassTypeHandler.
func NewClassTypeHandler(classTypes classTypeService) *ClassTypeHandler {
	return &ClassTypeHandler{classTypes: classTypes}
}

// List godoc
// @Summary List class types
// @Tags ClassTypes
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active state"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "name|price|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /class-types [get]
func (h *ClassTypeHandler) List(c *gin.Context) {
	filter := models.ClassTypeFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		Active:      queryBool(c, "active"),
		ListOptions: listOptions(c),
	}
	items, pagination, err := h.classTypes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Get godoc
// @Summary Get class type
// @Tags ClassTypes
// @Produce json
// @Param id path string true "Class type ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-types/{id} [get]
func (h *ClassTypeHandler) Get(c *gin.Context) {
	item, err := h.classTypes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Create class type
// @Tags ClassTypes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassTypeRequest true "Class type payload"
// @Success 201 {object} response.Envelope
// @Router /class-types [post]
func (h *ClassTypeHandler) Create(c *gin.Context) {
	var req dto.CreateClassTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.classTypes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, "class type created")
}

// Update godoc
// @Summary Update class type
// @Tags ClassTypes
// @Accept json
// @Produce json
// @Param id path string true "Class type ID"
// @Param payload body dto.UpdateClassTypeRequest true "Class type payload"
// @Success 200 {object} response.Envelope
// @Router /class-types/{id} [put]
func (h *ClassTypeHandler) Update(c *gin.Context) {
	var req dto.UpdateClassTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.classTypes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, "class type updated")
}

// UpdatePrice godoc
// @Summary Change class type price
// @Description Writes a price log row. Contracts of enrolled students keep their snapshot.
// @Tags ClassTypes
// @Accept json
// @Produce json
// @Param id path string true "Class type ID"
// @Param payload body dto.UpdatePriceRequest true "New price"
// @Success 200 {object} response.Envelope
// @Router /class-types/{id}/price [put]
func (h *ClassTypeHandler) UpdatePrice(c *gin.Context) {
	var req dto.UpdatePriceRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Operator = operator(c)
	entry, err := h.classTypes.UpdatePrice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, "price updated")
}

// PriceHistory godoc
// @Summary Class type price history
// @Tags ClassTypes
// @Produce json
// @Param id path string true "Class type ID"
// @Success 200 {object} response.Envelope
// @Router /class-types/{id}/price-logs [get]
func (h *ClassTypeHandler) PriceHistory(c *gin.Context) {
	logs, err := h.classTypes.PriceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, logs, models.Pagination{Total: len(logs), Limit: len(logs)})
}

// Delete godoc
// @Summary Delete class type
// @Tags ClassTypes
// @Param id path string true "Class type ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /class-types/{id} [delete]
func (h *ClassTypeHandler) Delete(c *gin.Context) {
	if err := h.classTypes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
