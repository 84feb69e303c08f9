package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Clock is a local wall-clock time of day with minute precision, e.g. "14:30".
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "15:04" and "15:04:05"; seconds are dropped.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return Clock{}, fmt.Errorf("invalid time of day %q", s)
		}
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Add shifts the clock by minutes, wrapping around midnight.
func (c Clock) Add(minutes int) Clock {
	total := ((c.Minutes()+minutes)%minutesPerDay + minutesPerDay) % minutesPerDay
	return Clock{Hour: total / 60, Minute: total % 60}
}

// EndTime computes the end wall-clock string of a session. It is the only
// place an end time is derived.
func EndTime(startTime string, durationMinutes int) (string, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return "", err
	}
	if durationMinutes <= 0 {
		return "", fmt.Errorf("session duration must be positive, got %d", durationMinutes)
	}
	return start.Add(durationMinutes).String(), nil
}

// SessionDate is the booked calendar day. The booking API sends either a bare
// date or a full timestamp; a bare date is kept as a civil date.
type SessionDate struct {
	time.Time
	dateOnly bool
}

const dateLayout = "2006-01-02"

// NewSessionDate builds a date-only value.
func NewSessionDate(year int, month time.Month, day int) SessionDate {
	return SessionDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), dateOnly: true}
}

func ParseSessionDate(s string) (SessionDate, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return SessionDate{Time: t, dateOnly: true}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return SessionDate{}, fmt.Errorf("invalid session date %q", s)
	}
	return SessionDate{Time: t}, nil
}

// Civil returns the calendar day as seen in loc.
func (d SessionDate) Civil(loc *time.Location) (int, time.Month, int) {
	if d.dateOnly {
		return d.Time.Date()
	}
	return d.Time.In(orUTC(loc)).Date()
}

// String renders the date in the API's date layout.
func (d SessionDate) String() string {
	if d.IsZero() {
		return ""
	}
	if d.dateOnly {
		return d.Time.Format(dateLayout)
	}
	return d.Time.Format(time.RFC3339)
}

func (d SessionDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *SessionDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = SessionDate{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = SessionDate{}
		return nil
	}
	parsed, err := ParseSessionDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LocalDateTime is a session start resolved once in a single known location.
// Every deadline is computed from it.
type LocalDateTime struct {
	t time.Time
}

// NewLocalDateTime combines the session date with the start time in loc.
// A time of day already present on the date is kept unless it is midnight;
// a midnight (or bare) date takes its time of day from start.
func NewLocalDateTime(date SessionDate, start Clock, loc *time.Location) LocalDateTime {
	loc = orUTC(loc)
	if !date.dateOnly {
		local := date.Time.In(loc)
		if local.Hour() != 0 || local.Minute() != 0 || local.Second() != 0 {
			return LocalDateTime{t: local}
		}
	}
	y, m, d := date.Civil(loc)
	return LocalDateTime{t: time.Date(y, m, d, start.Hour, start.Minute, 0, 0, loc)}
}

func (l LocalDateTime) Time() time.Time {
	return l.t
}

func (l LocalDateTime) IsZero() bool {
	return l.t.IsZero()
}

func (l LocalDateTime) Add(d time.Duration) LocalDateTime {
	return LocalDateTime{t: l.t.Add(d)}
}

func (l LocalDateTime) String() string {
	return l.t.Format("2006-01-02 15:04 MST")
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
