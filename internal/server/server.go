package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/medtrack/internal/handler"
	"github.com/dukerupert/medtrack/internal/middleware"
	"github.com/dukerupert/medtrack/internal/tracker"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

const writeLimitWindow = time.Minute

type Server struct {
	hub         *ws.Hub
	medicationH *handler.MedicationHandler
	roleH       *handler.RoleHandler
	rateLimiter *middleware.RateLimiter
	writeLimit  int
	logger      *slog.Logger
}

// New builds the HTTP surface over t. Mutating API requests are limited to
// writeLimit per client per minute.
func New(t *tracker.Tracker, hub *ws.Hub, writeLimit int, logger *slog.Logger) *Server {
	return &Server{
		hub:         hub,
		medicationH: handler.NewMedicationHandler(t, logger.With("component", "medication")),
		roleH:       handler.NewRoleHandler(),
		rateLimiter: middleware.NewRateLimiter(),
		writeLimit:  writeLimit,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Role selection
	mux.HandleFunc("GET /api/role", s.roleH.Get)
	mux.HandleFunc("PUT /api/role", s.roleH.Select)
	mux.HandleFunc("DELETE /api/role", s.roleH.Clear)

	// Medications
	mux.HandleFunc("GET /api/medications", s.medicationH.List)
	mux.HandleFunc("POST /api/medications", s.limited(s.medicationH.Create))
	mux.HandleFunc("PUT /api/medications/{id}", s.limited(s.medicationH.Update))
	mux.HandleFunc("POST /api/medications/{id}/taken", s.limited(s.medicationH.MarkTaken))
	mux.HandleFunc("DELETE /api/medications/{id}", s.limited(s.medicationH.Delete))
	mux.HandleFunc("POST /api/reset", s.limited(s.medicationH.Reset))
	mux.HandleFunc("GET /api/dashboard", s.medicationH.Dashboard)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(s.rateLimiter, s.writeLimit, writeLimitWindow)(h).ServeHTTP
}
