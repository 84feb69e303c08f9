package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager issues and resolves the sessions every call is made under. The
// bearer token is treated as opaque except for its exp and role claims;
// the booking API is what verifies it.
type Manager struct {
	repo   domain.SessionRepository
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewManager(repo domain.SessionRepository, ttl time.Duration, logger *zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL
	}
	return &Manager{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// readClaims extracts what the session needs from a JWT without checking its
// signature. Tokens that are not JWTs yield empty claims.
func readClaims(token string) (*claims, bool) {
	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, false
	}
	return c, true
}

// SignIn opens a session for token. Role and user id come from the token's
// claims when it carries them; the caller's values only fill what is missing
// and must otherwise agree.
func (m *Manager) SignIn(ctx context.Context, token string, role models.Role, profile models.Profile) (*models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.NewValidationError("token", "is required")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	if c, ok := readClaims(token); ok {
		if c.ExpiresAt != nil {
			if !now.Before(c.ExpiresAt.Time) {
				return nil, fmt.Errorf("token expired at %s: %w", c.ExpiresAt.Time.Format(time.RFC3339), domain.ErrUnauthorized)
			}
			if c.ExpiresAt.Time.Before(expiresAt) {
				expiresAt = c.ExpiresAt.Time
			}
		}
		if c.Role != "" {
			claimed, err := models.ParseRole(c.Role)
			if err != nil {
				return nil, fmt.Errorf("token role %q: %w", c.Role, domain.ErrForbidden)
			}
			if role != "" && role != claimed {
				return nil, fmt.Errorf("role %s does not match token role %s: %w", role, claimed, domain.ErrForbidden)
			}
			role = claimed
		}
		if c.Subject != "" {
			if profile.UserID != "" && profile.UserID != c.Subject {
				return nil, fmt.Errorf("user %s does not match token subject: %w", profile.UserID, domain.ErrForbidden)
			}
			profile.UserID = c.Subject
		}
	}

	parsed, err := models.ParseRole(string(role))
	if err != nil {
		return nil, domain.NewValidationError("role", err.Error())
	}
	if profile.UserID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		Token:     token,
		Role:      parsed,
		Profile:   profile,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := m.repo.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.logger.Info().
		Str("session_id", session.ID).
		Str("user_id", profile.UserID).
		Str("role", string(parsed)).
		Time("expires_at", expiresAt).
		Msg("session opened")

	return session, nil
}

// Get resolves id to a live session.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	session, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found: %w", id, domain.ErrUnauthorized)
	}
	if session.Expired(m.now()) {
		_ = m.repo.ClearSession(ctx, id)
		return nil, fmt.Errorf("session %s expired: %w", id, domain.ErrUnauthorized)
	}
	return session, nil
}

// Save persists changes made to a live session, such as the last list filter.
func (m *Manager) Save(ctx context.Context, session *models.Session) error {
	if session.Expired(m.now()) {
		return fmt.Errorf("session %s expired: %w", session.ID, domain.ErrUnauthorized)
	}
	return m.repo.SetSession(ctx, session)
}

func (m *Manager) SignOut(ctx context.Context, id string) error {
	if err := m.repo.ClearSession(ctx, id); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.logger.Info().Str("session_id", id).Msg("session closed")
	return nil
}

// AllowSignIn throttles sign-in attempts from one client.
func (m *Manager) AllowSignIn(ctx context.Context, client string, limit int, window time.Duration) (bool, error) {
	return m.repo.CheckRateLimit(ctx, "signin:"+client, limit, window)
}
