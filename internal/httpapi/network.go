package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"transit-planner/internal/geo"
	"transit-planner/internal/network"
)

const (
	defaultDepartures = 5
	maxDepartures     = 50
)

func (s *Server) stations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.planner.Graph().Stations())
}

func (s *Server) lines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.planner.Graph().Lines())
}

type NearestResponse struct {
	Station        *network.Station `json:"station"`
	Color          string           `json:"color"`
	Lines          []string         `json:"lines"`
	DistanceMeters float64          `json:"distanceMeters"`
}

// nearestStation handles GET /api/stations/nearest?lat=&lon=[&line=].
func (s *Server) nearestStation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	p := geo.Point{Lat: lat, Lon: lon}
	if errLat != nil || errLon != nil || !p.Valid() {
		writeError(w, http.StatusBadRequest, "lat and lon must be valid coordinates", nil)
		return
	}

	g := s.planner.Graph()
	candidates := g.Stations()
	if code := q.Get("line"); code != "" {
		line, ok := g.LineByName(code)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown line", map[string]any{"line": code})
			return
		}
		candidates = line.Stations
	}
	st, err := g.NearestStation(p, candidates)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	resp := NearestResponse{
		Station:        st,
		Color:          g.StationColor(st),
		Lines:          []string{},
		DistanceMeters: geo.Distance(p, st.Point()),
	}
	for _, l := range g.LinesOf(st) {
		resp.Lines = append(resp.Lines, l.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// departures handles GET /api/stations/{id}/departures?limit=.
func (s *Server) departures(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotImplemented, "departure board is disabled", nil)
		return
	}
	st, err := s.planner.Station(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	limit := defaultDepartures
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxDepartures {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50", nil)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station":    st,
		"departures": s.board.Departures(st, limit),
	})
}

// vehicles handles GET /api/lines/{id}/vehicles.
func (s *Server) vehicles(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotImplemented, "vehicle simulation is disabled", nil)
		return
	}
	id := chi.URLParam(r, "id")
	line, ok := s.planner.Graph().LineByName(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown line", map[string]any{"line": id})
		return
	}
	vs := s.board.Positions(line)
	writeJSON(w, http.StatusOK, map[string]any{
		"line":     line.ID,
		"count":    len(vs),
		"vehicles": vs,
	})
}
