package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultly/internal/booking"
	"consultly/internal/calendar"
	"consultly/internal/domain"
	"consultly/internal/events"
	"consultly/internal/metrics"
	"consultly/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxCollectPages bounds how many pages Collect walks for one export.
const maxCollectPages = 50

type BookingService struct {
	api      domain.BookingAPI
	locks    domain.Locker
	eventBus domain.EventPublisher
	policy   *booking.Policy
	machine  *booking.Machine
	boards   *Boards
	validate *validator.Validate
	lockTTL  time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(api domain.BookingAPI, locks domain.Locker, eventBus domain.EventPublisher, policy *booking.Policy, lockTTL time.Duration, logger *zerolog.Logger) *BookingService {
	if policy == nil {
		policy = booking.NewPolicy(nil, 0)
	}
	if lockTTL <= 0 {
		lockTTL = models.DefaultMutationLockTTL
	}
	s := &BookingService{
		api:      api,
		locks:    locks,
		eventBus: eventBus,
		policy:   policy,
		boards:   NewBoards(),
		validate: newValidator(),
		lockTTL:  lockTTL,
		logger:   logger,
		now:      time.Now,
	}
	s.machine = booking.NewMachine(policy, func() time.Time { return s.now() })
	return s
}

func requireSession(sess *models.Session) error {
	if sess == nil || sess.Token == "" {
		return fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (s *BookingService) view(b *models.Booking, sess *models.Session) *domain.BookingView {
	if b.EndTime != "" && !b.ConsistentEndTime() {
		s.logger.Warn().
			Str("booking_id", b.ID).
			Str("start_time", b.StartTime).
			Str("end_time", b.EndTime).
			Int("duration", b.SessionDuration).
			Msg("booking end time does not match its duration")
	}
	actions := s.policy.Actions(b, sess.Role, s.now())
	return &domain.BookingView{Booking: *b, Actions: booking.ActionStrings(actions)}
}

// List loads one page for the session's booking screen. The filter is merged
// into the session's last filter, so anything but a page change starts over
// at page one. A response overtaken by a newer List on the same session
// returns ErrStaleResponse.
func (s *BookingService) List(ctx context.Context, sess *models.Session, filter models.BookingFilter) (*domain.BookingList, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	board := s.boards.For(sess)
	q := board.Query(filter)

	page, err := s.api.ListMyBookings(ctx, sess.Token, q.Filter)
	if err != nil {
		return nil, err
	}

	list := &domain.BookingList{
		Bookings:   make([]domain.BookingView, 0, len(page.Bookings)),
		Pagination: page.Pagination,
		Filter:     q.Filter,
	}
	for i := range page.Bookings {
		list.Bookings = append(list.Bookings, *s.view(&page.Bookings[i], sess))
	}

	if !board.Latest(q) {
		s.logger.Debug().Str("session_id", sess.ID).Uint64("generation", q.Generation).Msg("dropping stale booking list")
		return nil, domain.ErrStaleResponse
	}

	f := q.Filter
	sess.LastFilter = &f
	return list, nil
}

// ForgetSession drops the list state kept for a closed session.
func (s *BookingService) ForgetSession(sessionID string) {
	s.boards.Drop(sessionID)
}

// Collect walks every page of filter, for exports. The session's list state
// is left alone.
func (s *BookingService) Collect(ctx context.Context, sess *models.Session, filter models.BookingFilter) ([]domain.BookingView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	filter = filter.Normalize()
	filter.Page = 1
	filter.Limit = models.MaxPageLimit

	var out []domain.BookingView
	for i := 0; i < maxCollectPages; i++ {
		page, err := s.api.ListMyBookings(ctx, sess.Token, filter)
		if err != nil {
			return nil, err
		}
		for j := range page.Bookings {
			out = append(out, *s.view(&page.Bookings[j], sess))
		}
		if !page.Pagination.HasNext() {
			return out, nil
		}
		filter = filter.WithPage(filter.Page + 1)
	}

	s.logger.Warn().Int("pages", maxCollectPages).Msg("booking export truncated")
	return out, nil
}

func (s *BookingService) Get(ctx context.Context, sess *models.Session, id string) (*domain.BookingView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	b, err := s.api.GetBooking(ctx, sess.Token, id)
	if err != nil {
		return nil, err
	}
	return s.view(b, sess), nil
}

// Create books a session for the signed-in seeker. Input is validated and the
// amount priced from the consultant's hourly rate before the booking API is
// called.
func (s *BookingService) Create(ctx context.Context, sess *models.Session, input domain.CreateBookingInput) (*domain.BookingView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !sess.IsSeeker() {
		return nil, fmt.Errorf("%w: only seekers can book sessions", domain.ErrForbidden)
	}

	input.ConsultantID = strings.TrimSpace(input.ConsultantID)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	date, err := models.ParseSessionDate(input.SessionDate)
	if err != nil {
		return nil, domain.NewValidationError("sessionDate", err.Error())
	}
	clock, err := models.ParseClock(input.StartTime)
	if err != nil {
		return nil, domain.NewValidationError("startTime", err.Error())
	}
	endTime, err := models.EndTime(clock.String(), input.SessionDuration)
	if err != nil {
		return nil, domain.NewValidationError("sessionDuration", err.Error())
	}
	start, err := s.policy.SessionStart(&models.Booking{SessionDate: date, StartTime: clock.String()})
	if err != nil {
		return nil, domain.NewValidationError("startTime", err.Error())
	}
	if !start.Time().After(s.now()) {
		return nil, domain.NewValidationError("sessionDate", "must be in the future")
	}

	consultant, err := s.api.GetConsultant(ctx, input.ConsultantID)
	if err != nil {
		return nil, err
	}
	amount := models.CalculateAmount(consultant.HourlyRate, input.SessionDuration)
	if amount <= 0 {
		return nil, domain.NewValidationError("consultantId", "consultant has no hourly rate")
	}

	req := models.CreateBookingRequest{
		ConsultantID:    input.ConsultantID,
		SessionDate:     date,
		StartTime:       clock.String(),
		EndTime:         endTime,
		SessionDuration: input.SessionDuration,
		SessionType:     input.SessionType,
		Amount:          amount,
		MeetingPlatform: models.MeetingPlatform,
		Description:     strings.TrimSpace(input.Description),
	}
	created, err := s.api.CreateBooking(ctx, sess.Token, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("consultant_id", input.ConsultantID).Msg("booking creation rejected")
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", created.ID).
		Str("consultant_id", created.ConsultantID).
		Int64("amount", created.Amount).
		Msg("booking created")
	metrics.IncTransition("new", string(models.StatusPending), string(sess.Role))
	s.publishEvent(events.EventBookingCreated, created, "", "", sess.Role)

	return s.view(created, sess), nil
}

// acquire takes the per-booking mutation guard. A failing lock store does not
// block the mutation.
func (s *BookingService) acquire(ctx context.Context, id string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	key, owner := "booking:"+id, uuid.NewString()
	ok, err := s.locks.TryLock(ctx, key, owner, s.lockTTL)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", id).Msg("mutation guard unavailable")
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrMutationInFlight
	}
	return func() {
		if err := s.locks.Unlock(context.WithoutCancel(ctx), key, owner); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", id).Msg("failed to release mutation guard")
		}
	}, nil
}

// reload fetches the booking after a confirmed success. If the read fails the
// mutation response is used instead.
func (s *BookingService) reload(ctx context.Context, sess *models.Session, id string, fallback *models.Booking) (*models.Booking, error) {
	b, err := s.api.GetBooking(ctx, sess.Token, id)
	if err == nil {
		return b, nil
	}
	if fallback != nil {
		s.logger.Warn().Err(err).Str("booking_id", id).Msg("reload after mutation failed, using mutation response")
		return fallback, nil
	}
	return nil, err
}

// MutateStatus asks the booking API to move a booking to status. The local
// state machine only derives the outgoing reason; the API decides. When the
// API rejects a transition the booking has in fact already made, the call
// succeeds.
func (s *BookingService) MutateStatus(ctx context.Context, sess *models.Session, id string, status models.Status, reason string) (*domain.BookingView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if _, err := models.ParseStatus(string(status)); err != nil {
		return nil, domain.NewValidationError("status", err.Error())
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.api.GetBooking(ctx, sess.Token, id)
	if err != nil {
		return nil, err
	}
	prev := current.Status
	if prev == status {
		return s.view(current, sess), nil
	}

	reason = strings.TrimSpace(reason)
	local := *current
	if _, err := s.machine.Apply(&local, status, sess.Role, reason); err != nil {
		s.logger.Debug().Err(err).Str("booking_id", id).Msg("local check disagrees, deferring to booking API")
	} else if status == models.StatusCancelled {
		reason = local.CancellationReason
	}

	updated, err := s.api.UpdateStatus(ctx, sess.Token, id, status, reason)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			if again, rerr := s.api.GetBooking(ctx, sess.Token, id); rerr == nil && again.Status == status {
				s.logger.Info().Str("booking_id", id).Str("status", string(status)).Msg("transition already applied")
				return s.view(again, sess), nil
			}
		}
		s.logger.Warn().Err(err).
			Str("booking_id", id).
			Str("from", string(prev)).
			Str("to", string(status)).
			Msg("status change rejected")
		return nil, err
	}

	fresh, err := s.reload(ctx, sess, id, updated)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", id).
		Str("from", string(prev)).
		Str("to", string(fresh.Status)).
		Str("actor", string(sess.Role)).
		Msg("booking status changed")
	metrics.IncTransition(string(prev), string(status), string(sess.Role))
	s.publishEvent(events.EventBookingStatusChanged, fresh, prev, reason, sess.Role)

	return s.view(fresh, sess), nil
}

// AddReview submits the seeker's one-time rating.
func (s *BookingService) AddReview(ctx context.Context, sess *models.Session, id string, rating int, review string) (*domain.BookingView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := booking.ValidateRating(rating); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.api.GetBooking(ctx, sess.Token, id)
	if err != nil {
		return nil, err
	}
	// a rating already on record is final; anything else the API decides
	local := *current
	if err := s.machine.Review(&local, rating, review, sess.Role); err != nil {
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			return nil, err
		}
		s.logger.Debug().Err(err).Str("booking_id", id).Msg("local check disagrees, deferring to booking API")
	}

	updated, err := s.api.AddReview(ctx, sess.Token, id, rating, strings.TrimSpace(review))
	if err != nil {
		return nil, err
	}
	fresh, err := s.reload(ctx, sess, id, updated)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", id).Int("rating", rating).Msg("booking reviewed")
	s.publishEvent(events.EventBookingReviewed, fresh, "", "", sess.Role)
	return s.view(fresh, sess), nil
}

// Reschedule moves a booking to a new date and start time.
func (s *BookingService) Reschedule(ctx context.Context, sess *models.Session, id string, date models.SessionDate, startTime string) (*domain.BookingView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, domain.NewValidationError("sessionDate", "is required")
	}
	clock, err := models.ParseClock(startTime)
	if err != nil {
		return nil, domain.NewValidationError("startTime", err.Error())
	}
	start, err := s.policy.SessionStart(&models.Booking{SessionDate: date, StartTime: clock.String()})
	if err != nil {
		return nil, domain.NewValidationError("startTime", err.Error())
	}
	if !start.Time().After(s.now()) {
		return nil, domain.NewValidationError("sessionDate", "must be in the future")
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.api.GetBooking(ctx, sess.Token, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.api.Reschedule(ctx, sess.Token, id, date, clock.String())
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", id).Msg("reschedule rejected")
		return nil, err
	}
	fresh, err := s.reload(ctx, sess, id, updated)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", id).
		Str("session_date", fresh.SessionDate.String()).
		Str("start_time", fresh.StartTime).
		Msg("booking rescheduled")
	metrics.IncTransition(string(current.Status), string(models.StatusRescheduled), string(sess.Role))
	s.publishEvent(events.EventBookingRescheduled, fresh, current.Status, "", sess.Role)
	return s.view(fresh, sess), nil
}

func (s *BookingService) GetAvailability(ctx context.Context, consultantID string, start, end time.Time) ([]models.AvailabilityDay, error) {
	if strings.TrimSpace(consultantID) == "" {
		return nil, domain.NewValidationError("consultantId", "is required")
	}
	if end.Before(start) {
		return nil, domain.NewValidationError("endDate", "must not be before startDate")
	}
	return s.api.GetAvailability(ctx, consultantID, start, end)
}

// Calendar renders the month grid of a consultant with availability loaded.
// A date that cannot be picked is ignored; a time not offered on the picked
// date is a validation error.
func (s *BookingService) Calendar(ctx context.Context, consultantID string, q calendar.Query) (calendar.View, error) {
	loc := s.policy.Location
	picker := calendar.NewPicker(consultantID, q.Month, loc, s.now)
	req := picker.Request()
	switch {
	case q.Step > 0:
		req = picker.NextMonth()
	case q.Step < 0:
		req = picker.PrevMonth()
	}

	days, err := s.GetAvailability(ctx, consultantID, req.Start.Time(loc), req.End.Time(loc))
	if err != nil {
		return calendar.View{}, err
	}
	picker.Apply(req, days)
	if q.Date.IsZero() || !picker.SelectDate(q.Date) {
		return picker.View(), nil
	}
	if q.Time != "" {
		if err := picker.SelectTime(q.Time); err != nil {
			return calendar.View{}, err
		}
	}
	return picker.View(), nil
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, prev models.Status, reason string, actor models.Role) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     b.ID,
		DisplayID:     b.DisplayID,
		SeekerID:      b.SeekerID,
		ConsultantID:  b.ConsultantID,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PrevStatus:    string(prev),
		SessionDate:   b.SessionDate.String(),
		StartTime:     b.StartTime,
		Reason:        reason,
		ChangedBy:     string(actor),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}
