// Package apierr translates domain and backend errors into HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/supabase"

	log "github.com/sirupsen/logrus"
)

// Status returns the response status and the text safe to show the caller.
func Status(err error) (int, string) {
	var requestErr *supabase.RequestError
	var authErr *identity.AuthError
	switch {
	case errors.As(err, &requestErr):
		return http.StatusBadGateway, requestErr.Error()
	case errors.Is(err, supabase.ErrEmptyRepresentation):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, fitness.ErrInvalidSession), errors.Is(err, fitness.ErrInvalidProfile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, fitness.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Message
	case errors.Is(err, identity.ErrNoRefreshToken), errors.Is(err, identity.ErrTokenMismatch):
		return http.StatusUnauthorized, "please sign in again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Write logs err under op and answers with the matching status.
func Write(w http.ResponseWriter, op string, err error) {
	status, msg := Status(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s: %s", op, err)
	} else {
		log.Debugf("%s: %s", op, err)
	}
	http.Error(w, msg, status)
}
