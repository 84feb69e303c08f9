package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"consultly/internal/calendar"
	"consultly/internal/config"
	"consultly/internal/domain"
	"consultly/internal/export"
	"consultly/internal/models"

	"github.com/rs/zerolog"
)

// Sessions is the session manager as the HTTP layer uses it.
type Sessions interface {
	domain.SessionManager
	AllowSignIn(ctx context.Context, client string, limit int, window time.Duration) (bool, error)
}

// Bookings is the booking facade plus the screen helpers built on it.
type Bookings interface {
	domain.BookingService
	ForgetSession(sessionID string)
	Collect(ctx context.Context, sess *models.Session, filter models.BookingFilter) ([]domain.BookingView, error)
	Calendar(ctx context.Context, consultantID string, q calendar.Query) (calendar.View, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Sessions Sessions
	Bookings Bookings
	Payments domain.PaymentService
	Exporter *export.Exporter
	Checks   map[string]HealthCheck
	Location *time.Location
}

// HTTPServer is the backend-for-frontend the booking screens talk to. It
// keeps no booking state; every request carries its session id.
type HTTPServer struct {
	cfg      config.APIConfig
	sessions Sessions
	bookings Bookings
	payments domain.PaymentService
	exporter *export.Exporter
	checks   map[string]HealthCheck
	loc      *time.Location
	server   *http.Server
	logger   *zerolog.Logger
	now      func() time.Time

	// addrLimiter covers every request; sessionLimiter only resolved sessions
	addrLimiter    *rateLimiter
	sessionLimiter *rateLimiter
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewExporter(loc)
	}
	if cfg.SessionHeader == "" {
		cfg.SessionHeader = "x-session-id"
	}

	srv := &HTTPServer{
		cfg:      cfg,
		sessions: deps.Sessions,
		bookings: deps.Bookings,
		payments: deps.Payments,
		exporter: exporter,
		checks:   deps.Checks,
		loc:      loc,
		logger:   logger,
		now:      time.Now,

		addrLimiter:    newRateLimiter(cfg.RateLimit),
		sessionLimiter: newRateLimiter(cfg.RateLimit),
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the full middleware chain over the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/v1/session", s.handleSignIn)
	mux.HandleFunc("GET /api/v1/session", s.withSession(s.handleSessionInfo))
	mux.HandleFunc("DELETE /api/v1/session", s.withSession(s.handleSignOut))

	mux.HandleFunc("GET /api/v1/bookings", s.withSession(s.handleListBookings))
	mux.HandleFunc("POST /api/v1/bookings", s.withSession(s.handleCreateBooking))
	mux.HandleFunc("GET /api/v1/bookings/export", s.withSession(s.handleExport))
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.withSession(s.handleGetBooking))
	mux.HandleFunc("POST /api/v1/bookings/{id}/status", s.withSession(s.handleUpdateStatus))
	mux.HandleFunc("POST /api/v1/bookings/{id}/review", s.withSession(s.handleReview))
	mux.HandleFunc("POST /api/v1/bookings/{id}/reschedule", s.withSession(s.handleReschedule))
	mux.HandleFunc("POST /api/v1/bookings/{id}/checkout", s.withSession(s.handleCheckout))
	mux.HandleFunc("POST /api/v1/bookings/{id}/refund", s.withSession(s.handleRefund))
	mux.HandleFunc("GET /api/v1/bookings/{id}/breakdown", s.withSession(s.handleBreakdown))

	mux.HandleFunc("GET /api/v1/consultants/{id}/availability", s.handleAvailability)
	mux.HandleFunc("GET /api/v1/consultants/{id}/calendar", s.handleCalendar)

	mux.HandleFunc("GET /api/v1/payments/methods", s.withSession(s.handlePaymentMethods))
	mux.HandleFunc("POST /api/v1/payments/complete", s.withSession(s.handleCompletePayment))
	mux.HandleFunc("POST /api/v1/payments/{orderId}/dismiss", s.withSession(s.handleDismissPayment))

	return requestIDMiddleware(s.loggingMiddleware(s.recoverMiddleware(s.rateLimitMiddleware(mux))))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *models.Session)

// withSession resolves the caller's session before the handler runs.
func (s *HTTPServer) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(s.cfg.SessionHeader))
		sess, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if !s.sessionLimiter.Allow(sess.ID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r, sess)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.NewValidationError("", "invalid JSON body")
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"checks": results})
}
