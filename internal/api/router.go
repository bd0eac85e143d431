package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MimoJanra/UptimeGuard/internal/config"
)

const (
	cronHeader   = config.DefaultCronHeader
	apiKeyHeader = config.DefaultAPIKeyHeader
)

func SetupRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	r.Get("/metrics", s.ServeMetrics)

	r.Route("/api/monitor", func(r chi.Router) {
		r.Get("/crontask", s.CronTask)

		r.Group(func(r chi.Router) {
			r.Use(requireAPIKey(s.APIKey))
			r.Get("/", s.ListTargets)
			r.Post("/add", s.AddTarget)
			r.Delete("/{id}", s.DeleteTarget)
		})
	})

	return r
}

// requireAPIKey passes every request through when key is empty.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(apiKeyHeader)), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
