package calendar

import (
	"time"

	"consultly/internal/models"
)

// Availability indexes a consultant's open slots by day.
type Availability map[Date][]string

// NewAvailability builds the index from the API response. Days without slots
// are kept so callers can tell "fetched, empty" from "not fetched".
func NewAvailability(days []models.AvailabilityDay, loc *time.Location) Availability {
	idx := make(Availability, len(days))
	for _, day := range days {
		if day.Date.IsZero() {
			continue
		}
		y, m, d := day.Date.Civil(loc)
		idx[NewDate(y, m, d)] = day.AvailableSlots
	}
	return idx
}

// Has reports whether d has at least one slot.
func (a Availability) Has(d Date) bool {
	return len(a[d]) > 0
}

// Slots returns the slots of d in the order the API sent them.
func (a Availability) Slots(d Date) []string {
	return a[d]
}

// Cell is one day of the month grid.
type Cell struct {
	Date            Date `json:"date"`
	Label           int  `json:"day"`
	IsCurrentMonth  bool `json:"isCurrentMonth"`
	IsToday         bool `json:"isToday"`
	IsSelected      bool `json:"isSelected"`
	HasAvailability bool `json:"hasAvailability"`
	IsPast          bool `json:"isPast"`
}

// Selectable reports whether the day can be picked.
func (c Cell) Selectable() bool {
	return !c.IsPast && c.HasAvailability
}

// Week is a Sunday-first row of seven cells.
type Week [7]Cell

// GridStart is the Sunday on or before the first day of m.
func GridStart(m Month) Date {
	first := m.FirstDay()
	return first.AddDays(-int(first.Weekday()))
}

// GridEnd is the Saturday on or after the last day of m.
func GridEnd(m Month) Date {
	last := m.LastDay()
	return last.AddDays(int(time.Saturday - last.Weekday()))
}

// BuildGrid lays out month m as whole weeks.
func BuildGrid(m Month, avail Availability, today, selected Date) []Week {
	start, end := GridStart(m), GridEnd(m)

	weeks := make([]Week, 0, 6)
	for d := start; !d.After(end); {
		var w Week
		for col := 0; col < 7; col++ {
			w[col] = Cell{
				Date:            d,
				Label:           d.Day,
				IsCurrentMonth:  m.Contains(d),
				IsToday:         d == today,
				IsSelected:      !selected.IsZero() && d == selected,
				HasAvailability: avail.Has(d),
				IsPast:          d.Before(today),
			}
			d = d.AddDays(1)
		}
		weeks = append(weeks, w)
	}
	return weeks
}
