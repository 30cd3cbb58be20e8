package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shirley959/amazon-final/internal/session"
)

// SessionVerifier is satisfied by *session.Issuer.
type SessionVerifier interface {
	Verify(token string) (*session.Session, error)
}

// RequireSession rejects requests without a valid bearer session token.
func RequireSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w, "missing session token")
				return
			}
			sess, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				unauthorized(w, "invalid session token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, sess.ID)))
		})
	}
}

func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="relay"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthorized", "message": msg},
	})
}
