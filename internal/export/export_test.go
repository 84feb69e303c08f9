package export

import (
	"bytes"
	"testing"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWrite(t *testing.T) {
	rating := 5
	bookings := []domain.BookingView{
		{Booking: models.Booking{
			ID: "b-1", DisplayID: "BK-1", SessionDate: models.NewSessionDate(2024, 6, 10),
			StartTime: "14:00", EndTime: "15:00", SessionDuration: 60, SessionType: models.SessionConsultation,
			Status: models.StatusCompleted, PaymentStatus: models.PaymentPaid, Amount: 150000,
			ConsultantID: "c-1", SeekerID: "s-1", Rating: &rating,
		}},
		{Booking: models.Booking{
			ID: "b-2", SessionDate: models.NewSessionDate(2024, 6, 11),
			StartTime: "09:00", EndTime: "09:30", SessionDuration: 30, SessionType: models.SessionMentoring,
			Status: models.StatusCancelled, PaymentStatus: models.PaymentRefunded, Amount: 50050,
			CancellationReason: models.DefaultDeclineReason,
		}},
	}

	e := NewExporter(time.UTC)
	now := time.Date(2024, 6, 12, 8, 30, 0, 0, time.UTC)
	filter := models.DefaultBookingFilter().WithSearch("asha")

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, bookings, filter, now))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Bookings"}, f.GetSheetList())

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, `search: "asha"`)
	assert.Contains(t, title, "2024-06-12 08:30")

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4)
	assert.Equal(t, headers, rows[1])

	assert.Equal(t, "BK-1", rows[2][0])
	assert.Equal(t, "2024-06-10", rows[2][1])
	assert.Equal(t, "completed", rows[2][6])
	assert.Equal(t, "₹1,500.00", rows[2][9])
	assert.Equal(t, "5", rows[2][12])

	assert.Equal(t, "b-2", rows[3][0])
	assert.Equal(t, models.DefaultDeclineReason, rows[3][13])

	label, _ := f.GetCellValue(sheetName, "H6")
	assert.Equal(t, "Paid total", label)
	total, _ := f.GetCellValue(sheetName, "I6", excelize.Options{RawCellValue: true})
	assert.Equal(t, "1500", total)
}

func TestFileName(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	e := NewExporter(ist)
	assert.Equal(t, "bookings_2024-06-12_1400.xlsx", e.FileName(time.Date(2024, 6, 12, 8, 30, 0, 0, time.UTC)))
}
