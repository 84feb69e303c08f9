package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle status of a booking.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// ParseStatus accepts only the known booking statuses.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled, "canceled":
		return StatusCancelled, nil
	case StatusNoShow, "no-show":
		return StatusNoShow, nil
	case StatusRescheduled:
		return StatusRescheduled, nil
	default:
		return "", fmt.Errorf("unknown booking status: %q", s)
	}
}

// IsTerminal reports whether no further transitions leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentStatus mirrors the payment state the booking API reports.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentPending:
		return PaymentPending, nil
	case PaymentPaid:
		return PaymentPaid, nil
	case PaymentFailed:
		return PaymentFailed, nil
	case PaymentRefunded:
		return PaymentRefunded, nil
	case PaymentCancelled, "canceled":
		return PaymentCancelled, nil
	default:
		return "", fmt.Errorf("unknown payment status: %q", s)
	}
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed, err := ParsePaymentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SessionType classifies what the seeker booked the consultant for.
type SessionType string

const (
	SessionConsultation SessionType = "consultation"
	SessionMentoring    SessionType = "mentoring"
	SessionReview       SessionType = "review"
	SessionCoaching     SessionType = "coaching"
	SessionOther        SessionType = "other"
)

func ParseSessionType(s string) (SessionType, error) {
	switch SessionType(strings.ToLower(strings.TrimSpace(s))) {
	case SessionConsultation:
		return SessionConsultation, nil
	case SessionMentoring:
		return SessionMentoring, nil
	case SessionReview:
		return SessionReview, nil
	case SessionCoaching:
		return SessionCoaching, nil
	case SessionOther:
		return SessionOther, nil
	default:
		return "", fmt.Errorf("unknown session type: %q", s)
	}
}

func (t *SessionType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = ""
		return nil
	}
	parsed, err := ParseSessionType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Role is the party acting on a booking.
type Role string

const (
	RoleSeeker     Role = "seeker"
	RoleConsultant Role = "consultant"
	// RoleSystem drives automatic transitions, e.g. confirmation after payment.
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSeeker:
		return RoleSeeker, nil
	case RoleConsultant:
		return RoleConsultant, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// SortField is a field the booking list can be ordered by.
type SortField string

const (
	SortBySessionDate SortField = "sessionDate"
	SortByCreatedAt   SortField = "createdAt"
	SortByAmount      SortField = "amount"
	SortByStatus      SortField = "status"
)

func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.TrimSpace(s)) {
	case SortBySessionDate, SortByCreatedAt, SortByAmount, SortByStatus:
		return SortField(strings.TrimSpace(s)), nil
	default:
		return "", fmt.Errorf("unknown sort field: %q", s)
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort order: %q", s)
	}
}

// MeetingPlatform is the only video provider sessions are hosted on.
const MeetingPlatform = "zoom"

// DefaultDeclineReason is recorded when a consultant rejects without a reason.
const DefaultDeclineReason = "Declined by consultant"

const (
	// DefaultCancelWindow how long before the session start cancellation closes
	DefaultCancelWindow = 24 * time.Hour

	// DefaultPageLimit bookings per page when the caller does not choose
	DefaultPageLimit = 10

	// MaxPageLimit upper bound accepted for a page
	MaxPageLimit = 100

	// DefaultSessionTTL lifetime of a session with no expiry claim
	DefaultSessionTTL = 12 * time.Hour

	// DefaultAvailabilityCacheTTL cache lifetime for availability reads
	DefaultAvailabilityCacheTTL = 30 * time.Second

	// DefaultMutationLockTTL upper bound on a single in-flight mutation
	DefaultMutationLockTTL = 30 * time.Second

	// DefaultAttemptTTL how long an unpaid order stays open
	DefaultAttemptTTL = 2 * time.Hour

	// Currency all amounts are expressed in, as integer minor units (paise)
	Currency = "INR"
)
