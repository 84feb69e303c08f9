package models

import (
	"fmt"
	"time"
)

// Booking is a scheduled session between a seeker and a consultant as the
// booking API reports it.
type Booking struct {
	ID                 string        `json:"id"`
	DisplayID          string        `json:"displayId"`
	SeekerID           string        `json:"seekerId"`
	ConsultantID       string        `json:"consultantId"`
	SessionDate        SessionDate   `json:"sessionDate"`
	StartTime          string        `json:"startTime"`
	EndTime            string        `json:"endTime"`
	SessionDuration    int           `json:"sessionDuration"` // minutes
	SessionType        SessionType   `json:"sessionType"`
	Amount             int64         `json:"amount"` // minor units
	MeetingPlatform    string        `json:"meetingPlatform"`
	MeetingLink        *string       `json:"meetingLink"`
	Status             Status        `json:"status"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
	Description        string        `json:"description,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	Rating             *int          `json:"rating,omitempty"`
	Review             string        `json:"review,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// HasRating reports whether the one-time review has been written.
func (b *Booking) HasRating() bool {
	return b.Rating != nil
}

// Start resolves the session start in loc.
func (b *Booking) Start(loc *time.Location) (LocalDateTime, error) {
	clock, err := ParseClock(b.StartTime)
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if b.SessionDate.IsZero() {
		return LocalDateTime{}, fmt.Errorf("booking %s: session date is missing", b.ID)
	}
	return NewLocalDateTime(b.SessionDate, clock, loc), nil
}

// ConsistentEndTime reports whether EndTime equals StartTime+SessionDuration.
func (b *Booking) ConsistentEndTime() bool {
	end, err := EndTime(b.StartTime, b.SessionDuration)
	if err != nil {
		return false
	}
	return end == b.EndTime
}

// CalculateAmount prices a session from an hourly rate, rounding half up to
// a whole minor unit.
func CalculateAmount(hourlyRate int64, durationMinutes int) int64 {
	if hourlyRate <= 0 || durationMinutes <= 0 {
		return 0
	}
	return (hourlyRate*int64(durationMinutes) + 30) / 60
}

// CreateBookingRequest is the body of POST /bookings.
type CreateBookingRequest struct {
	ConsultantID    string      `json:"consultantId"`
	SessionDate     SessionDate `json:"sessionDate"`
	StartTime       string      `json:"startTime"`
	EndTime         string      `json:"endTime"`
	SessionDuration int         `json:"sessionDuration"`
	SessionType     SessionType `json:"sessionType"`
	Amount          int64       `json:"amount"`
	MeetingPlatform string      `json:"meetingPlatform"`
	Description     string      `json:"description,omitempty"`
}

// Consultant is the subset of a consultant profile the booking core needs.
type Consultant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Expertise  string `json:"expertise,omitempty"`
	HourlyRate int64  `json:"hourlyRate"` // minor units
}

// AvailabilityDay lists the open start times a consultant has on a date.
type AvailabilityDay struct {
	Date           SessionDate `json:"date"`
	AvailableSlots []string    `json:"availableSlots"`
}
