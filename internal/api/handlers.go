package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"consultly/internal/booking"
	"consultly/internal/calendar"
	"consultly/internal/domain"
	"consultly/internal/models"
)

type signInRequest struct {
	Token   string         `json:"token"`
	Role    string         `json:"role"`
	Profile models.Profile `json:"profile"`
}

// sessionResponse is the session without its bearer token.
type sessionResponse struct {
	ID        string         `json:"id"`
	Role      models.Role    `json:"role"`
	Profile   models.Profile `json:"profile"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

func toSessionResponse(sess *models.Session) sessionResponse {
	return sessionResponse{
		ID:        sess.ID,
		Role:      sess.Role,
		Profile:   sess.Profile,
		ExpiresAt: sess.ExpiresAt,
	}
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	allowed, err := s.sessions.AllowSignIn(r.Context(), remoteHost(r), s.cfg.RateLimit.SignInLimit, s.cfg.RateLimit.SignInWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("sign-in rate check failed, allowing")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "Too many sign-in attempts. Please wait a minute and try again.")
		return
	}

	var req signInRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var role models.Role
	if strings.TrimSpace(req.Role) != "" {
		if role, err = models.ParseRole(req.Role); err != nil {
			s.writeDomainError(w, r, domain.NewValidationError("role", err.Error()))
			return
		}
	}

	sess, err := s.sessions.SignIn(r.Context(), req.Token, role, req.Profile)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *HTTPServer) handleSessionInfo(w http.ResponseWriter, _ *http.Request, sess *models.Session) {
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *HTTPServer) handleSignOut(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	if err := s.sessions.SignOut(r.Context(), sess.ID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.bookings.ForgetSession(sess.ID)
	s.sessionLimiter.Forget(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// filterFromQuery reads a list query, starting from the filter the session
// last viewed so a reload keeps the screen where it was.
func filterFromQuery(r *http.Request, sess *models.Session) (models.BookingFilter, error) {
	f := models.DefaultBookingFilter()
	if sess.LastFilter != nil {
		f = *sess.LastFilter
	}
	q := r.URL.Query()

	if q.Has("status") {
		raw := strings.TrimSpace(q.Get("status"))
		if raw == "" || raw == "all" {
			f.Status = ""
		} else {
			st, err := models.ParseStatus(raw)
			if err != nil {
				return f, domain.NewValidationError("status", err.Error())
			}
			f.Status = st
		}
	}
	if q.Has("search") {
		f.Search = q.Get("search")
	}
	if q.Has("sortBy") {
		by, err := models.ParseSortField(q.Get("sortBy"))
		if err != nil {
			return f, domain.NewValidationError("sortBy", err.Error())
		}
		f.SortBy = by
	}
	if q.Has("sortOrder") {
		order, err := models.ParseSortOrder(q.Get("sortOrder"))
		if err != nil {
			return f, domain.NewValidationError("sortOrder", err.Error())
		}
		f.SortOrder = order
	}
	for _, field := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"page", &f.Page}} {
		if !q.Has(field.name) {
			continue
		}
		n, err := strconv.Atoi(q.Get(field.name))
		if err != nil {
			return f, domain.NewValidationError(field.name, "must be a number")
		}
		*field.dst = n
	}
	return f, nil
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	filter, err := filterFromQuery(r, sess)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	list, err := s.bookings.List(r.Context(), sess, filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.saveSession(r, sess)
	writeJSON(w, http.StatusOK, list)
}

// saveSession persists the remembered filter. Failing to do so only costs
// the next reload its position.
func (s *HTTPServer) saveSession(r *http.Request, sess *models.Session) {
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to save session")
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	filter, err := filterFromQuery(r, sess)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	views, err := s.bookings.Collect(r.Context(), sess, filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	now := s.now()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exporter.FileName(now)))
	if err := s.exporter.Write(w, views, filter, now); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("failed to write export")
	}
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	var input domain.CreateBookingInput
	if err := decodeBody(w, r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	view, err := s.bookings.Create(r.Context(), sess, input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	view, err := s.bookings.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// target resolves the requested status. An action name such as "approve" may
// stand in for the status.
func (req statusRequest) target() (models.Status, error) {
	if req.Status == "" && req.Action != "" {
		status, ok := booking.TargetStatus(booking.Action(req.Action))
		if !ok {
			return "", domain.NewValidationError("action", fmt.Sprintf("%q does not change the status", req.Action))
		}
		return status, nil
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return "", domain.NewValidationError("status", err.Error())
	}
	return status, nil
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status, err := req.target()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	view, err := s.bookings.MutateStatus(r.Context(), sess, r.PathValue("id"), status, req.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (s *HTTPServer) handleReview(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	view, err := s.bookings.AddReview(r.Context(), sess, r.PathValue("id"), req.Rating, req.Review)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type rescheduleRequest struct {
	SessionDate string `json:"sessionDate"`
	StartTime   string `json:"startTime"`
}

func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	var req rescheduleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	date, err := models.ParseSessionDate(req.SessionDate)
	if err != nil {
		s.writeDomainError(w, r, domain.NewValidationError("sessionDate", err.Error()))
		return
	}

	view, err := s.bookings.Reschedule(r.Context(), sess, r.PathValue("id"), date, req.StartTime)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := calendar.ParseDate(q.Get("startDate"))
	if err != nil {
		s.writeDomainError(w, r, domain.NewValidationError("startDate", err.Error()))
		return
	}
	end, err := calendar.ParseDate(q.Get("endDate"))
	if err != nil {
		s.writeDomainError(w, r, domain.NewValidationError("endDate", err.Error()))
		return
	}

	days, err := s.bookings.GetAvailability(r.Context(), r.PathValue("id"), start.Time(s.loc), end.Time(s.loc))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"availability": days})
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var selected calendar.Date
	if raw := q.Get("date"); raw != "" {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			s.writeDomainError(w, r, domain.NewValidationError("date", err.Error()))
			return
		}
		selected = d
	}

	month := calendar.MonthOf(calendar.DateOf(s.now(), s.loc))
	switch {
	case q.Get("month") != "":
		m, err := calendar.ParseMonth(q.Get("month"))
		if err != nil {
			s.writeDomainError(w, r, domain.NewValidationError("month", err.Error()))
			return
		}
		month = m
	case !selected.IsZero():
		month = calendar.MonthOf(selected)
	}

	var step int
	switch q.Get("nav") {
	case "":
	case "next":
		step = 1
	case "prev":
		step = -1
	default:
		s.writeDomainError(w, r, domain.NewValidationError("nav", "must be next or prev"))
		return
	}

	view, err := s.bookings.Calendar(r.Context(), r.PathValue("id"), calendar.Query{
		Month: month,
		Step:  step,
		Date:  selected,
		Time:  strings.TrimSpace(q.Get("time")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	checkout, err := s.payments.StartCheckout(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkout)
}

func (s *HTTPServer) handleCompletePayment(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	var result models.PaymentVerification
	if err := decodeBody(w, r, &result); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	b, err := s.payments.Complete(r.Context(), sess, result)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleDismissPayment(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	if err := s.payments.Dismiss(r.Context(), sess, r.PathValue("orderId")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	// the widget was closed; the booking stays payable
	writeJSON(w, http.StatusOK, map[string]string{
		"message": domain.UserMessage(domain.NewPaymentError(domain.PaymentDismissed, r.PathValue("orderId"), nil)),
	})
}

type refundRequest struct {
	Reason string `json:"reason"`
}

func (s *HTTPServer) handleRefund(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	var req refundRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	b, err := s.payments.Refund(r.Context(), sess, r.PathValue("id"), req.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handlePaymentMethods(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	methods, err := s.payments.Methods(r.Context(), sess)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": methods})
}

func (s *HTTPServer) handleBreakdown(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	breakdown, err := s.payments.Breakdown(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
