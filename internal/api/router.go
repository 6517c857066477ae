package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-climate/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/metrics/prometheus", s.handlePrometheus)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(requirePermission(auth.PermSensorRead)).Group(func(r chi.Router) {
				r.Get("/status", s.handleStatus)
				r.Get("/sensors", s.handleListSensors)
				r.Get("/sensors/{id}", s.handleGetSensor)
				r.Get("/sensors/{id}/history", s.handleSensorHistory)
				r.Get("/ws", s.handleWebSocket)
			})

			r.With(requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)

			r.Route("/services", func(r chi.Router) {
				r.Use(requirePermission(auth.PermServiceCall))
				r.Post("/add_sensor", s.handleAddSensor)
				r.Post("/add_window_sensor", s.handleAddWindowSensor)
				r.Post("/rediscover", s.handleRediscover)
				r.Post("/reevaluate_window_sensors", s.handleReevaluate)
			})
		})
	})

	return r
}

// handleHealth runs the dependency checks. Any failure answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	check := func(name string, fn func() error) {
		if err := fn(); err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}
	if s.db != nil {
		check("database", func() error { return s.db.HealthCheck(r.Context()) })
	}
	if s.mqtt != nil {
		check("mqtt", func() error { return s.mqtt.HealthCheck(r.Context()) })
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
