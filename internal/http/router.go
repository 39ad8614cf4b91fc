package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// RouterOptions carries the cross-cutting knobs the router needs beyond the
// handler app itself.
type RouterOptions struct {
	JWTSecret       string
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	StaticDir       string
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	// Local object store exposure; production fronts a bucket instead.
	if opts.StaticDir != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	// Internal surfaces carry their own shared-secret auth.
	r.Post("/v1/analyze/process", app.Process)
	r.Get("/v1/cron/cleanup", app.CronCleanup)

	// Session routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Post("/v1/uploads", app.Upload)

		r.Post("/v1/analyze", app.Analyze)
		r.Get("/v1/analyze/status", app.AnalyzeStatus)
		r.Post("/v1/analyze/stream", app.AnalyzeStream)

		r.Route("/v1/lessons", func(r chi.Router) {
			r.Get("/", app.LessonList)
			r.Get("/{lesson_id}", app.LessonGet)
			r.Post("/{lesson_id}/save", app.LessonSave)
			r.Delete("/{lesson_id}", app.LessonDelete)
		})

		r.Route("/v1/me/preferences", func(r chi.Router) {
			r.Get("/", app.PreferencesGet)
			r.Put("/", app.PreferencesUpdate)
		})
	})

	return r
}
