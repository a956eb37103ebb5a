package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

// Options tunes the router middleware stack.
type Options struct {
	// GenerateLimitPerMinute caps POST /generate per client IP; zero disables it.
	GenerateLimitPerMinute int
	AllowedOrigins         []string
	// TrustProxyHeaders mounts RealIP so the client address comes from
	// X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders      bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Get("/", app.Page)
	r.Get("/state", app.State)
	r.Get("/download", app.Download)
	r.Post("/reset", app.Reset)

	r.Route("/slots/{slot}", func(r chi.Router) {
		r.Post("/", app.SelectImage)
		r.Post("/remove", app.RemoveImage)
	})

	r.With(middleware.RateLimit(opts.GenerateLimitPerMinute, time.Minute)).Post("/generate", app.Generate)

	return r
}
