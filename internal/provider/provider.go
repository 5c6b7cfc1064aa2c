// Package provider defines the external collaborators of the planner, a
// directions service and a geocoder, with HTTP and simulated
// implementations.
package provider

import (
	"context"
	"errors"
	"time"

	"transit-planner/internal/geo"
	"transit-planner/internal/itinerary"
)

var ErrNoResults = errors.New("no results")

// Location is either free text or a coordinate. Point wins when both are set.
type Location struct {
	Text  string     `json:"text,omitempty"`
	Point *geo.Point `json:"point,omitempty"`
}

func (l Location) String() string {
	if l.Point != nil {
		return l.Point.String()
	}
	return l.Text
}

func (l Location) IsZero() bool { return l.Point == nil && l.Text == "" }

type Query struct {
	Origin      Location
	Destination Location
	// Mode is a provider travel mode hint; empty means transit.
	Mode     string
	DepartAt time.Time
	// Bias, when set, asks the provider to prefer results near the point.
	Bias         *geo.Point
	Alternatives bool
}

// Directions returns zero or more raw itineraries. A provider that answers
// with a non-OK status returns no itineraries and no error; errors are
// reserved for transport failures.
type Directions interface {
	Directions(ctx context.Context, q Query) ([]itinerary.RawItinerary, error)
}

// Geocoder resolves free text to candidate coordinates, best first.
type Geocoder interface {
	Geocode(ctx context.Context, text string) ([]geo.Point, error)
}
