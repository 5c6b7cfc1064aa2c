package provider

import (
	"context"
	"strconv"
	"strings"

	"transit-planner/internal/geo"
	"transit-planner/internal/network"
)

// StaticGeocoder resolves station names and "lat,lon" text without any
// network call.
type StaticGeocoder struct {
	graph *network.Graph
}

func NewStaticGeocoder(g *network.Graph) *StaticGeocoder {
	return &StaticGeocoder{graph: g}
}

func (s *StaticGeocoder) Geocode(_ context.Context, text string) ([]geo.Point, error) {
	if p, ok := ParsePoint(text); ok {
		return []geo.Point{p}, nil
	}
	if st, ok := s.graph.StationByName(text); ok {
		return []geo.Point{st.Point()}, nil
	}
	return nil, nil
}

// ParsePoint reads "lat,lon".
func ParsePoint(text string) (geo.Point, bool) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return geo.Point{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: lat, Lon: lon}
	return p, p.Valid()
}
