package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/service"
	"github.com/noah-isme/drivingschool-api/pkg/response"
)

type paymentService interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, models.Pagination, error)
	RecordPayment(ctx context.Context, req dto.RecordPaymentRequest) (*models.PaymentResult, error)
	Refund(ctx context.Context, req dto.RefundRequest) (*models.PaymentResult, error)
	Discount(ctx context.Context, req dto.DiscountRequest) (*models.PaymentResult, error)
	DeleteRecord(ctx context.Context, recordID string) (*models.PaymentResult, error)
}

type ledgerExporter interface {
	PaymentLedger(ctx context.Context, filter models.PaymentFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// PaymentHandler exposes the financial reconciliation endpoints.
type PaymentHandler struct {
	payments paymentService
	exports  ledgerExporter
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService, exports ledgerExporter) *PaymentHandler {
	return &PaymentHandler{payments: payments, exports: exports}
}

func paymentFilter(c *gin.Context) (models.PaymentFilter, error) {
	filter := models.PaymentFilter{
		StudentID:   c.Query("student_id"),
		RecordType:  models.RecordType(c.Query("record_type")),
		ListOptions: listOptions(c),
	}
	var err error
	if filter.DateFrom, err = queryDate(c, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = queryDate(c, "date_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

// List godoc
// @Summary List ledger rows
// @Tags Payments
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param record_type query string false "payment|refund|discount"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "payment_date|amount|created_at"
// @Param sortOrder query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter, err := paymentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Record godoc
// @Summary Record a payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Operator = operator(c)
	result, err := h.payments.RecordPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result, "payment recorded")
}

// Refund godoc
// @Summary Refund a student
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.RefundRequest true "Refund payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Operator = operator(c)
	result, err := h.payments.Refund(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result, "refund recorded")
}

// Discount godoc
// @Summary Grant a discount
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.DiscountRequest true "Discount payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/discount [post]
func (h *PaymentHandler) Discount(c *gin.Context) {
	var req dto.DiscountRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Operator = operator(c)
	result, err := h.payments.Discount(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result, "discount recorded")
}

// Delete godoc
// @Summary Reverse a ledger row
// @Description Deletes the row and reverses its effect on the student aggregates.
// @Tags Payments
// @Produce json
// @Param id path string true "Ledger row ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	result, err := h.payments.DeleteRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, "record deleted")
}

// Export godoc
// @Summary Export the ledger
// @Tags Payments
// @Produce application/octet-stream
// @Param format query string false "xlsx|csv"
// @Param student_id query string false "Filter by student"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Success 200 {file} file
// @Router /payments/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	filter, err := paymentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatXLSX)))
	file, err := h.exports.PaymentLedger(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file.Filename, file.ContentType, file.Data)
}
