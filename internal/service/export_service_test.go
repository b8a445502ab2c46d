package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type payrollSourceStub struct {
	items []models.CoachSalaryDetail
}

func (p payrollSourceStub) Month(ctx context.Context, month string) ([]models.CoachSalaryDetail, error) {
	return p.items, nil
}

type ledgerSourceStub struct {
	items []models.PaymentRecordDetail
}

func (l ledgerSourceStub) Export(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, error) {
	return l.items, nil
}

func newExportServiceForTest() *ExportService {
	payroll := payrollSourceStub{items: []models.CoachSalaryDetail{{
		CoachSalary: models.CoachSalary{
			Month:          "2025-03",
			AttendanceDays: 22,
			BaseSalary:     dec("2200"),
			GrossSalary:    dec("2580.5"),
			Status:         models.SalaryStatusPaid,
		},
		CoachName: "王教练",
	}}}
	ledger := ledgerSourceStub{items: []models.PaymentRecordDetail{{
		PaymentRecord: models.PaymentRecord{
			RecordType:    models.RecordTypeRefund,
			Amount:        dec("-200"),
			PaymentDate:   time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			PaymentMethod: "refund",
			Operator:      "cashier",
			Notes:         "退费：课程取消",
		},
		StudentName: "张三",
	}}}
	svc := NewExportService(payroll, ledger, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportPayrollSheetCSV(t *testing.T) {
	svc := newExportServiceForTest()

	file, err := svc.PayrollSheet(context.Background(), "2025-03", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "coach_salary_2025-03.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "王教练,2025-03,22,2200.00"))
	assert.Contains(t, lines[1], "2580.50,已发放")
}

func TestExportPayrollSheetXLSXAndPDF(t *testing.T) {
	svc := newExportServiceForTest()

	file, err := svc.PayrollSheet(context.Background(), "2025-03", ExportFormatXLSX)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()
	name, err := wb.GetCellValue("教练工资 2025-03", "A3")
	require.NoError(t, err)
	assert.Equal(t, "王教练", name)

	file, err = svc.PayrollSheet(context.Background(), "2025-03", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportPaymentLedger(t *testing.T) {
	svc := newExportServiceForTest()

	file, err := svc.PaymentLedger(context.Background(), models.PaymentFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "payment_ledger_20250401.csv", file.Filename)
	assert.Contains(t, string(file.Data), "2025-03-05,张三,退费,-200.00,refund,cashier")

	_, err = svc.PaymentLedger(context.Background(), models.PaymentFilter{}, ExportFormatPDF)
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}
