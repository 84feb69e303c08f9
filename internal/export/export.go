package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"
	"consultly/internal/money"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{
	"Booking", "Date", "Start", "End", "Duration (min)", "Type",
	"Status", "Payment", "Amount (INR)", "Amount", "Consultant", "Seeker",
	"Rating", "Cancellation reason",
}

var statusColors = map[models.Status]string{
	models.StatusPending:     "#FFF2CC",
	models.StatusConfirmed:   "#E2EFDA",
	models.StatusCompleted:   "#DDEBF7",
	models.StatusCancelled:   "#F8CBAD",
	models.StatusNoShow:      "#D9D9D9",
	models.StatusRescheduled: "#FCE4D6",
}

// Exporter renders booking lists as XLSX workbooks.
type Exporter struct {
	loc *time.Location
}

func NewExporter(loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{loc: loc}
}

// FileName is the download name of a workbook generated at now.
func (e *Exporter) FileName(now time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", now.In(e.loc).Format("2006-01-02_1504"))
}

// Workbook builds the sheet for bookings listed under filter.
func (e *Exporter) Workbook(bookings []domain.BookingView, filter models.BookingFilter, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}

	_ = f.SetCellValue(sheetName, "A1", e.title(filter, now))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	_ = f.SetSheetRow(sheetName, "A2", &headerRow)
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A2", lastCol+"2", headerStyle)

	amountStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})
	statusStyles := make(map[models.Status]int, len(statusColors))
	for status, color := range statusColors {
		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		statusStyles[status] = style
	}

	var paidTotal int64
	row := 3
	for i := range bookings {
		b := &bookings[i].Booking
		if err := e.writeBooking(f, row, b); err != nil {
			f.Close()
			return nil, err
		}

		amountCell, _ := excelize.CoordinatesToCellName(9, row)
		_ = f.SetCellStyle(sheetName, amountCell, amountCell, amountStyle)
		if style, ok := statusStyles[b.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(7, row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, style)
		}
		if b.PaymentStatus == models.PaymentPaid {
			paidTotal += b.Amount
		}
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(8, row+1)
	totalCell, _ := excelize.CoordinatesToCellName(9, row+1)
	_ = f.SetCellValue(sheetName, totalLabel, "Paid total")
	_ = f.SetCellValue(sheetName, totalCell, money.Major(paidTotal))
	_ = f.SetCellStyle(sheetName, totalCell, totalCell, amountStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "B", "H", 13)
	_ = f.SetColWidth(sheetName, "I", "J", 15)
	_ = f.SetColWidth(sheetName, "K", "L", 16)
	_ = f.SetColWidth(sheetName, "N", "N", 40)

	return f, nil
}

func (e *Exporter) writeBooking(f *excelize.File, row int, b *models.Booking) error {
	id := b.DisplayID
	if id == "" {
		id = b.ID
	}
	date := ""
	if !b.SessionDate.IsZero() {
		y, m, d := b.SessionDate.Civil(e.loc)
		date = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	}
	var rating interface{} = ""
	if b.Rating != nil {
		rating = *b.Rating
	}

	values := []interface{}{
		id, date, b.StartTime, b.EndTime, b.SessionDuration, string(b.SessionType),
		string(b.Status), string(b.PaymentStatus), money.Major(b.Amount), money.Format(b.Amount),
		b.ConsultantID, b.SeekerID, rating, b.CancellationReason,
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("error writing booking %s: %w", b.ID, err)
	}
	return nil
}

func (e *Exporter) title(filter models.BookingFilter, now time.Time) string {
	parts := []string{"Bookings"}
	if filter.Status != "" {
		parts = append(parts, "status: "+string(filter.Status))
	}
	if filter.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", filter.Search))
	}
	parts = append(parts, "generated "+now.In(e.loc).Format("2006-01-02 15:04 MST"))
	return strings.Join(parts, " | ")
}

// Write streams the workbook for bookings to w.
func (e *Exporter) Write(w io.Writer, bookings []domain.BookingView, filter models.BookingFilter, now time.Time) error {
	f, err := e.Workbook(bookings, filter, now)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}
