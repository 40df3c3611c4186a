package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/inventory-core/internal/viewer"
)

const (
	// imagesPrefix is where raw blobs are served.
	imagesPrefix = "/images"

	// viewerPrefix is where the image page's static assets are served.
	viewerPrefix = "/viewer"

	// healthCheckTimeout bounds the dependency probes behind /health.
	healthCheckTimeout = 2 * time.Second
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Handle(viewerPrefix+"/*", http.StripPrefix(viewerPrefix, viewer.Assets()))
	r.Get(imagesPrefix+"/{ref}", s.handleServeBlob)

	// Image uploads carry their own, larger limit.
	r.With(s.uploadLimitMiddleware).Put("/devices/{id}/image", s.handleUploadImage)

	r.Group(func(r chi.Router) {
		r.Use(s.bodySizeLimitMiddleware)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/take", s.handleTakeDevice)
				r.Post("/return", s.handleReturnDevice)
				r.Get("/image", s.handleGetImage)
				r.Get("/image/page", s.handleImagePage)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Put("/", s.handleUpdateUser)
				r.Patch("/", s.handleUpdateUser)
				r.Get("/devices", s.handleListUserDevices)
			})
		})

		r.Get("/audit", s.handleListAuditLogs)
	})

	r.Get(s.wsPath(), s.handleWebSocket)

	return r
}

// wsPath returns the configured WebSocket path, defaulting to /ws.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
//
// Optional dependencies are reported individually; only a failing audit
// database turns the overall status to "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	components := map[string]string{}

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			status = "degraded"
			components["database"] = err.Error()
		} else {
			components["database"] = "ok"
		}
	}
	if s.mqtt != nil {
		components["mqtt"] = connState(s.mqtt.IsConnected())
	}
	if s.influx != nil {
		components["influxdb"] = connState(s.influx.IsConnected())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

func connState(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}
