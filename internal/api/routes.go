package api

import (
	"net/http"

	"parley/internal/logging"
	"parley/internal/room"
	"parley/internal/store"
)

type RoutesConfig struct {
	AuthToken      string
	AllowedOrigins []string
	StatusQuerier  AnalysisStatusQuerier
}

func RegisterRoutes(mux *http.ServeMux, registry *room.Registry, meetingStore store.Store, config RoutesConfig, logger *logging.Logger) {
	rest := &RestHandler{
		Registry: registry,
		Store:    meetingStore,
		Status:   config.StatusQuerier,
		Logger:   logger,
	}
	wrap := func(handler http.Handler) http.Handler {
		return loggingMiddleware(logger, handler)
	}

	mux.Handle("/ws/rooms/", securityHeadersMiddleware(cacheControlNoStore, &RoomWSHandler{
		Registry:       registry,
		Logger:         logger,
		AllowedOrigins: config.AllowedOrigins,
	}))
	mux.Handle("/ws/logs", securityHeadersMiddleware(cacheControlNoStore, &LogsWSHandler{
		Logger:         logger,
		AuthToken:      config.AuthToken,
		AllowedOrigins: config.AllowedOrigins,
	}))

	mux.Handle("/api/rooms", wrap(restHandler(config.AuthToken, rest.handleRooms)))
	mux.Handle("/api/rooms/", wrap(restHandler(config.AuthToken, rest.handleRoom)))
	mux.Handle("/api/status", wrap(restHandler(config.AuthToken, rest.handleStatus)))
	mux.Handle("/api/logs", wrap(restHandler(config.AuthToken, rest.handleLogs)))
	mux.Handle("/metrics", wrap(restHandler(config.AuthToken, rest.handleMetrics)))
	mux.Handle("/api/", securityHeadersMiddleware(cacheControlNoStore, http.NotFoundHandler()))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, cacheControlNoCache)
		if config.AuthToken != "" {
			w.Header().Set("X-Parley-Auth", "required")
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("parley ok\n"))
	})
}
