package calendar

import (
	"sync"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"
)

// FetchRequest asks for one month of a consultant's availability. Generation
// ties the eventual response back to the cursor position that asked for it.
type FetchRequest struct {
	ConsultantID string
	Start        Date
	End          Date
	Generation   uint64
}

// Query is one calendar screen request. Step moves Month forward or back by a
// month before availability is fetched; Date and Time are picked afterwards.
type Query struct {
	Month Month
	Step  int
	Date  Date
	Time  string
}

// Picker is the date/time selection state of a booking form.
type Picker struct {
	mu sync.Mutex

	consultantID string
	loc          *time.Location
	now          func() time.Time

	month      Month
	avail      Availability
	generation uint64

	selectedDate Date
	selectedTime string
}

func NewPicker(consultantID string, month Month, loc *time.Location, now func() time.Time) *Picker {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Picker{
		consultantID: consultantID,
		loc:          loc,
		now:          now,
		month:        month,
		avail:        Availability{},
		generation:   1,
	}
}

func (p *Picker) Month() Month {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.month
}

// Request describes the fetch for the month currently shown.
func (p *Picker) Request() FetchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requestLocked()
}

func (p *Picker) requestLocked() FetchRequest {
	return FetchRequest{
		ConsultantID: p.consultantID,
		Start:        p.month.FirstDay(),
		End:          p.month.LastDay(),
		Generation:   p.generation,
	}
}

// Apply installs fetched availability. A response to a superseded request is
// dropped and Apply returns false.
func (p *Picker) Apply(req FetchRequest, days []models.AvailabilityDay) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.Generation != p.generation {
		return false
	}

	p.avail = NewAvailability(days, p.loc)
	if !p.selectedDate.IsZero() && !p.avail.Has(p.selectedDate) {
		p.selectedDate = Date{}
		p.selectedTime = ""
	}
	return true
}

// NextMonth moves the cursor forward and returns the fetch to issue.
func (p *Picker) NextMonth() FetchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moveLocked(p.month.Next())
	return p.requestLocked()
}

func (p *Picker) PrevMonth() FetchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moveLocked(p.month.Prev())
	return p.requestLocked()
}

func (p *Picker) moveLocked(m Month) {
	p.month = m
	p.avail = Availability{}
	p.generation++
}

func (p *Picker) today() Date {
	return DateOf(p.now(), p.loc)
}

// SelectDate picks d when it is not past and has slots. Otherwise nothing
// changes and false is returned. A successful pick always clears the time.
func (p *Picker) SelectDate(d Date) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d.Before(p.today()) || !p.avail.Has(d) {
		return false
	}
	p.selectedDate = d
	p.selectedTime = ""
	return true
}

// Slots lists the start times of the selected date.
func (p *Picker) Slots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.selectedDate.IsZero() {
		return nil
	}
	return p.avail.Slots(p.selectedDate)
}

func (p *Picker) SelectTime(slot string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.selectedDate.IsZero() {
		return domain.NewValidationError("sessionDate", "select a date first")
	}
	for _, s := range p.avail.Slots(p.selectedDate) {
		if s == slot {
			p.selectedTime = slot
			return nil
		}
	}
	return domain.NewValidationError("startTime", "time slot is not available")
}

// View is a rendered snapshot of the picker.
type View struct {
	ConsultantID string   `json:"consultantId"`
	Month        string   `json:"month"`
	Weeks        []Week   `json:"weeks"`
	SelectedDate *Date    `json:"selectedDate"`
	SelectedTime string   `json:"selectedTime,omitempty"`
	Slots        []string `json:"slots"`
}

func (p *Picker) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		ConsultantID: p.consultantID,
		Month:        p.month.String(),
		Weeks:        BuildGrid(p.month, p.avail, p.today(), p.selectedDate),
		SelectedTime: p.selectedTime,
		Slots:        []string{},
	}
	if !p.selectedDate.IsZero() {
		d := p.selectedDate
		v.SelectedDate = &d
		v.Slots = p.avail.Slots(d)
	}
	return v
}
