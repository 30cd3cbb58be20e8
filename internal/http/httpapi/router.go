package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shirley959/amazon-final/internal/http/handlers"
	"github.com/shirley959/amazon-final/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	limiter := middleware.NewRateLimiter(app.Config.RateLimitPerMin, time.Minute)

	r.Use(
		middleware.RequestID,
		middleware.RealIP(app.Config.TrustedProxies),
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.Locale("en"),
	)

	r.Get("/v1/healthz", app.Health)
	r.With(limiter.Middleware).Post("/v1/sessions", app.CreateSession)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(app.Sessions), limiter.Middleware)

		r.Route("/v1/generations", func(r chi.Router) {
			r.Post("/", app.CreateGeneration)
			r.Get("/{id}", app.GetGeneration)
		})
		r.Route("/v1/campaigns", func(r chi.Router) {
			r.Post("/", app.CreateCampaign)
			r.Get("/{id}", app.GetCampaign)
			r.Get("/{id}/archive", app.CampaignArchive)
		})
		r.Post("/v1/diagnostics/relay", app.RelayDiagnostics)
	})

	return r
}
