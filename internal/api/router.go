package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Actuator endpoints
		r.Route("/actuators", func(r chi.Router) {
			r.Get("/", s.handleListActuators)
			r.Post("/", s.handleCreateActuator)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetActuator)
				r.Patch("/", s.handleUpdateActuator)
				r.Delete("/", s.handleDeleteActuator)
				r.Post("/command", s.handleActuatorCommand)
			})
		})

		// Sensor unit endpoints
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Post("/", s.handleCreateSensor)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.Patch("/", s.handleUpdateSensor)
				r.Delete("/", s.handleDeleteSensor)
				r.Put("/frequency", s.handleSetSensorFrequency)
			})
		})

		// Enrolment endpoints (devices awaiting operator confirmation)
		r.Route("/enrollments", func(r chi.Router) {
			r.Get("/", s.handleListEnrollments)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/confirm", s.handleConfirmEnrollment)
				r.Delete("/", s.handleRejectEnrollment)
			})
		})

		// Alert endpoints
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlerts)
			r.Post("/{id}/resolve", s.handleResolveAlert)
		})

		// WebSocket for real-time actuator state updates
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
