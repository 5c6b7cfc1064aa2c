package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"transit-planner/internal/geo"
	"transit-planner/internal/logging"
	"transit-planner/internal/metrosteps"
	"transit-planner/internal/network"
	"transit-planner/internal/planner"
	"transit-planner/internal/provider"
	"transit-planner/internal/selector"
)

// Endpoint is a free-text place or a coordinate.
type Endpoint struct {
	Text string   `json:"text" validate:"required_without=Lat"`
	Lat  *float64 `json:"lat" validate:"required_without=Text,omitempty,latitude"`
	Lon  *float64 `json:"lon" validate:"required_with=Lat,omitempty,longitude"`
}

func (e Endpoint) location() provider.Location {
	l := provider.Location{Text: strings.TrimSpace(e.Text)}
	if e.Lat != nil && e.Lon != nil {
		l.Point = &geo.Point{Lat: *e.Lat, Lon: *e.Lon}
	}
	return l
}

type PlanRequest struct {
	Origin      Endpoint   `json:"origin"`
	Destination Endpoint   `json:"destination"`
	Policy      string     `json:"policy" validate:"omitempty,oneof=fastest easiest all"`
	DepartAt    *time.Time `json:"departAt"`
}

// plan handles POST /api/plan.
func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", map[string]any{"internal": err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan request", map[string]any{"validation": err.Error()})
		return
	}
	policy, err := selector.ParsePolicy(req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	preq := planner.Request{
		Origin:      req.Origin.location(),
		Destination: req.Destination.location(),
		Policy:      policy,
	}
	if req.DepartAt != nil {
		preq.DepartAt = *req.DepartAt
	}

	res, err := s.planner.Plan(r.Context(), preq)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, planner.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, planner.ErrUnresolved):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, selector.ErrNoRoutes):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		logging.LogError(logging.FromContext(r.Context()), "plan request failed", err)
		writeError(w, http.StatusBadGateway, "failed to plan trip", map[string]any{"internal": err.Error()})
	}
}

type MetroStepsResponse struct {
	metrosteps.Trip
	From         string `json:"from"`
	To           string `json:"to"`
	TotalMinutes int    `json:"totalMinutes"`
}

// metroSteps handles GET /api/metro/steps?from=&to=.
func (s *Server) metroSteps(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to parameters are required", nil)
		return
	}
	trip, err := s.planner.MetroTrip(from, to)
	if err != nil {
		if errors.Is(err, network.ErrUnknownStation) {
			writeError(w, http.StatusNotFound, err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build metro steps", map[string]any{"internal": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, MetroStepsResponse{
		Trip:         trip,
		From:         from,
		To:           to,
		TotalMinutes: int(trip.Duration / time.Minute),
	})
}
