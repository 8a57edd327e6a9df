package handle

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmorgan81/decorai/internal/export"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/page"
	"github.com/dmorgan81/decorai/internal/prompt"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/do"
)

const DefaultMaxUploadBytes = 10 << 20

// Server exposes decoration sessions over HTTP.
type Server struct {
	registry   *session.Registry
	exporter   *export.Exporter
	templator  *page.Templator
	randomizer *prompt.Randomizer
	maxUpload  int64
}

func NewServer(i *do.Injector) (*Server, error) {
	return &Server{
		registry:   do.MustInvoke[*session.Registry](i),
		exporter:   do.MustInvoke[*export.Exporter](i),
		templator:  do.MustInvoke[*page.Templator](i),
		randomizer: do.MustInvoke[*prompt.Randomizer](i),
		maxUpload:  do.MustInvokeNamed[int64](i, "max_upload_bytes"),
	}, nil
}

// Routes builds the router. Request loggers derive from the logger in ctx.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log.FromContextOrDiscard(ctx)), middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/styles", s.styles)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Put("/source", s.setSource)
			r.Post("/decorate", s.decorate)
			r.Post("/surprise", s.surprise)
			r.Post("/reset", s.reset)
			r.Get("/compare", s.compare)
			r.Get("/download", s.download)
		})
	})
	return r
}

// Janitor drops idle sessions until ctx is done.
func (s *Server) Janitor(ctx context.Context, every time.Duration) {
	log := log.FromContextOrDiscard(ctx).WithGroup("janitor")
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.Sweep(); n > 0 {
				log.Info("dropped idle sessions", "count", n, "remaining", s.registry.Len())
			}
		}
	}
}

func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(log.NewContext(r.Context(), l)))

			l.Info("handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
