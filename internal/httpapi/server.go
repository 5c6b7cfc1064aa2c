// Package httpapi exposes the planner over HTTP with chi.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"transit-planner/internal/logging"
	"transit-planner/internal/planner"
	"transit-planner/internal/sim"
)

type Server struct {
	planner  *planner.Planner
	board    *sim.Board
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer builds the handlers. board may be nil, which disables the
// departures and vehicles endpoints.
func NewServer(p *planner.Planner, board *sim.Board, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{planner: p, board: board, validate: validator.New(), logger: logger}
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Router mounts every route. An empty origin list allows any origin.
func (s *Server) Router(corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/plan", s.plan)
		r.Get("/metro/steps", s.metroSteps)
		r.Get("/stations", s.stations)
		r.Get("/stations/nearest", s.nearestStation)
		r.Get("/stations/{id}/departures", s.departures)
		r.Get("/lines", s.lines)
		r.Get("/lines/{id}/vehicles", s.vehicles)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), s.logger)))
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	g := s.planner.Graph()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"network":   g.Name(),
		"stations":  len(g.Stations()),
		"lines":     len(g.Lines()),
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
