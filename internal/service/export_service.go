package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
	"github.com/noah-isme/drivingschool-api/pkg/export"
)

// ExportFormat names a downloadable file type.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatCSV  ExportFormat = "csv"
)

var exportContentTypes = map[ExportFormat]string{
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportFormatPDF:  "application/pdf",
	ExportFormatCSV:  "text/csv; charset=utf-8",
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type payrollSource interface {
	Month(ctx context.Context, month string) ([]models.CoachSalaryDetail, error)
}

type ledgerSource interface {
	Export(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders payroll sheets and the payment ledger.
type ExportService struct {
	payroll payrollSource
	ledger  ledgerSource
	csv     csvRenderer
	xlsx    titledRenderer
	pdf     titledRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// defaults from pkg/export.
func NewExportService(payroll payrollSource, ledger ledgerSource, logger *zap.Logger, csv csvRenderer, xlsx, pdf titledRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{payroll: payroll, ledger: ledger, csv: csv, xlsx: xlsx, pdf: pdf, logger: logger, now: time.Now}
}

var payrollHeaders = []string{
	"教练", "月份", "出勤天数", "基本工资", "科目二通过", "科目二提成",
	"科目三通过", "科目三提成", "招生人数", "招生提成", "奖金", "扣款", "应发工资", "状态",
}

// PayrollSheet renders every salary record of a month.
func (s *ExportService) PayrollSheet(ctx context.Context, month string, format ExportFormat) (*ExportFile, error) {
	if _, ok := exportContentTypes[format]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be xlsx, pdf or csv")
	}
	items, err := s.payroll.Month(ctx, month)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"教练":    item.CoachName,
			"月份":    item.Month,
			"出勤天数":  strconv.Itoa(item.AttendanceDays),
			"基本工资":  item.BaseSalary.StringFixed(2),
			"科目二通过": strconv.Itoa(item.Subject2PassCount),
			"科目二提成": item.Subject2Commission.StringFixed(2),
			"科目三通过": strconv.Itoa(item.Subject3PassCount),
			"科目三提成": item.Subject3Commission.StringFixed(2),
			"招生人数":  strconv.Itoa(item.RecruitmentCount),
			"招生提成":  item.RecruitmentCommission.StringFixed(2),
			"奖金":    item.Bonus.StringFixed(2),
			"扣款":    item.Deduction.StringFixed(2),
			"应发工资":  item.GrossSalary.StringFixed(2),
			"状态":    salaryStatusLabel(item.Status),
		})
	}
	dataset := export.Dataset{Headers: payrollHeaders, Rows: rows}
	return s.render(dataset, fmt.Sprintf("教练工资 %s", month), "coach_salary_"+month, format)
}

var ledgerHeaders = []string{"日期", "学员", "类型", "金额", "方式", "经办人", "备注"}

// PaymentLedger renders the ledger rows matching filter. PDF is not offered.
func (s *ExportService) PaymentLedger(ctx context.Context, filter models.PaymentFilter, format ExportFormat) (*ExportFile, error) {
	if format != ExportFormatXLSX && format != ExportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be xlsx or csv")
	}
	items, err := s.ledger.Export(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"日期":  item.PaymentDate.Format(dateLayout),
			"学员":  item.StudentName,
			"类型":  ledgerTitle(item.RecordType),
			"金额":  item.Amount.StringFixed(2),
			"方式":  item.PaymentMethod,
			"经办人": item.Operator,
			"备注":  item.Notes,
		})
	}
	dataset := export.Dataset{Headers: ledgerHeaders, Rows: rows}
	name := "payment_ledger_" + s.now().UTC().Format("20060102")
	return s.render(dataset, "缴费流水", name, format)
}

func (s *ExportService) render(dataset export.Dataset, title, basename string, format ExportFormat) (*ExportFile, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, title)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	s.logger.Info("export rendered", zap.String("file", basename), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{
		Filename:    basename + "." + string(format),
		ContentType: exportContentTypes[format],
		Data:        payload,
	}, nil
}

func ledgerTitle(t models.RecordType) string {
	switch t {
	case models.RecordTypeRefund:
		return "退费"
	case models.RecordTypeDiscount:
		return "减免"
	default:
		return "缴费"
	}
}

func salaryStatusLabel(status models.SalaryStatus) string {
	if status == models.SalaryStatusPaid {
		return "已发放"
	}
	return "待发放"
}
