package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"consultly/internal/domain"
)

const signInPath = "/sign-in"

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
	Field    string `json:"field,omitempty"`
	Payment  string `json:"payment,omitempty"`
}

// statusFor maps a core error onto the HTTP status the UI branches on.
func statusFor(err error) int {
	var payErr *domain.PaymentError
	if errors.As(err, &payErr) {
		switch payErr.Kind {
		case domain.PaymentNetwork:
			return http.StatusBadGateway
		case domain.PaymentDismissed:
			return http.StatusConflict
		default:
			return http.StatusPaymentRequired
		}
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyReviewed),
		errors.Is(err, domain.ErrMutationInFlight),
		errors.Is(err, domain.ErrStaleResponse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// writeDomainError renders err with the message a screen can show. Credential
// failures also tell the UI where to send the user.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: domain.UserMessage(err)}

	if domain.NeedsSignIn(err) {
		resp.Redirect = signInPath
	}
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		resp.Field = valErr.Field
	}
	var payErr *domain.PaymentError
	if errors.As(err, &payErr) {
		resp.Payment = string(payErr.Kind)
	}

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("request_id", requestIDFrom(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	writeJSON(w, status, resp)
}
