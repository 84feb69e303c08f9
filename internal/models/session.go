package models

import "time"

// Profile is the cached identity shown in forms and prefilled at checkout.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
}

// Session is the explicit identity threaded into every call that needs a
// credential or role. It is created at sign-in and removed at sign-out.
type Session struct {
	ID         string         `json:"id"`
	Token      string         `json:"token"`
	Role       Role           `json:"role"`
	Profile    Profile        `json:"profile"`
	LastFilter *BookingFilter `json:"last_filter,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s *Session) IsSeeker() bool {
	return s.Role == RoleSeeker
}
