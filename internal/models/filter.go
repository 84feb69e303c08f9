package models

import (
	"net/url"
	"strconv"
	"strings"
)

// BookingFilter is the query behind a booking list screen. Changing any
// field except Page moves the list back to the first page.
type BookingFilter struct {
	Status    Status    `json:"status,omitempty"`
	Search    string    `json:"search,omitempty"`
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
	SortBy    SortField `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

func DefaultBookingFilter() BookingFilter {
	return BookingFilter{
		Page:      1,
		Limit:     DefaultPageLimit,
		SortBy:    SortBySessionDate,
		SortOrder: SortDesc,
	}
}

// Normalize fills defaults and clamps out-of-range values.
func (f BookingFilter) Normalize() BookingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.SortBy == "" {
		f.SortBy = SortBySessionDate
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f BookingFilter) WithStatus(s Status) BookingFilter {
	if f.Status != s {
		f.Status = s
		f.Page = 1
	}
	return f
}

func (f BookingFilter) WithSearch(search string) BookingFilter {
	search = strings.TrimSpace(search)
	if f.Search != search {
		f.Search = search
		f.Page = 1
	}
	return f
}

func (f BookingFilter) WithLimit(limit int) BookingFilter {
	if f.Limit != limit {
		f.Limit = limit
		f.Page = 1
	}
	return f
}

func (f BookingFilter) WithSort(by SortField, order SortOrder) BookingFilter {
	if f.SortBy != by || f.SortOrder != order {
		f.SortBy = by
		f.SortOrder = order
		f.Page = 1
	}
	return f
}

func (f BookingFilter) WithPage(page int) BookingFilter {
	f.Page = page
	return f
}

// Apply moves from f to next the way a screen would: if anything but the
// page changed, the requested page is discarded.
func (f BookingFilter) Apply(next BookingFilter) BookingFilter {
	f = f.Normalize()
	next = next.Normalize()
	out := f.WithStatus(next.Status).
		WithSearch(next.Search).
		WithLimit(next.Limit).
		WithSort(next.SortBy, next.SortOrder)
	if sameExceptPage(f, out) {
		out.Page = next.Page
	}
	return out
}

func sameExceptPage(a, b BookingFilter) bool {
	return a.Status == b.Status &&
		a.Search == b.Search &&
		a.Limit == b.Limit &&
		a.SortBy == b.SortBy &&
		a.SortOrder == b.SortOrder
}

// Values encodes the filter as the booking API query string.
func (f BookingFilter) Values() url.Values {
	f = f.Normalize()
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("limit", strconv.Itoa(f.Limit))
	v.Set("sortBy", string(f.SortBy))
	v.Set("sortOrder", string(f.SortOrder))
	return v
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
	Limit       int `json:"limit"`
}

// HasNext reports whether another page follows.
func (p Pagination) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// BookingPage is one page of the booking list.
type BookingPage struct {
	Bookings   []Booking  `json:"bookings"`
	Pagination Pagination `json:"pagination"`
}
