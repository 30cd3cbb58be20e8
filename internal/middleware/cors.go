package middleware

import (
	"net/http"

	"github.com/samber/lo"
)

// CORS echoes allowed origins. A "*" entry allows any origin without credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := lo.Contains(allowedOrigins, "*")
	allow := lo.SliceToMap(allowedOrigins, func(origin string) (string, struct{}) {
		return origin, struct{}{}
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				_, listed := allow[origin]
				switch {
				case listed:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				case wildcard:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				if listed || wildcard {
					w.Header().Add("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Locale, X-Request-ID")
					w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
					w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
