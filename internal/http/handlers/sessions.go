package handlers

import (
	"errors"
	"net/http"

	"github.com/shirley959/amazon-final/internal/session"
)

type sessionRequest struct {
	Password string `json:"password"`
}

// CreateSession exchanges the access password for a bearer token.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !a.decode(w, r, &req) {
		return
	}
	token, sess, err := a.Sessions.Issue(req.Password)
	if errors.Is(err, session.ErrInvalidPassword) {
		a.Logger.Warn().Str("remote", r.RemoteAddr).Msg("session: wrong password")
		a.error(w, http.StatusUnauthorized, "invalid_password", "wrong access password")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("session: issue failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not create session")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"token":      token,
		"session_id": sess.ID,
		"expires_at": sess.ExpiresAt,
	})
}
