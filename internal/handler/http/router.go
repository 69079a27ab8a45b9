// Package httphandler is the browser-facing REST surface of the console.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/lp"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/middleware"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/ws"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every console endpoint under /api.
func NewRouter(api *API, stream *ws.WSHandler, poll *lp.LPHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", api.Login)
		r.Get("/stats", api.Stats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(api.sessions))

			r.Delete("/session", api.Logout)
			r.Get("/session", api.Whoami)

			r.Get("/notifications", api.Notifications)
			r.Post("/notifications/read-all", api.MarkAllRead)
			r.Post("/notifications/{id}/open", api.Open)

			r.Get("/grid/{resource}", api.Grid)

			r.Handle("/stream", stream)
			r.Get("/poll", poll.Poll)
		})
	})

	return r
}

// requestLogger writes one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", chimw.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
