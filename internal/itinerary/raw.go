package itinerary

import "transit-planner/internal/geo"

// Raw types mirror the directions provider payload. One RawItinerary is one
// provider route; each RawLeg is one walking or transit segment of it.

type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// TimeValue carries a scheduled instant as display text plus a Unix epoch.
type TimeValue struct {
	Text     string `json:"text"`
	Value    int64  `json:"value"`
	TimeZone string `json:"time_zone,omitempty"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l *LatLng) Point() *geo.Point {
	if l == nil {
		return nil
	}
	return &geo.Point{Lat: l.Lat, Lon: l.Lng}
}

type RawVehicle struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type RawLine struct {
	Name      string     `json:"name"`
	ShortName string     `json:"short_name"`
	Color     string     `json:"color,omitempty"`
	Vehicle   RawVehicle `json:"vehicle"`
}

type RawStop struct {
	Name     string  `json:"name"`
	Location *LatLng `json:"location,omitempty"`
}

type RawTransit struct {
	Line          RawLine    `json:"line"`
	DepartureStop RawStop    `json:"departure_stop"`
	ArrivalStop   RawStop    `json:"arrival_stop"`
	DepartureTime *TimeValue `json:"departure_time,omitempty"`
	ArrivalTime   *TimeValue `json:"arrival_time,omitempty"`
	NumStops      int        `json:"num_stops"`
	Headsign      string     `json:"headsign"`
}

type RawLeg struct {
	TravelMode       string      `json:"travel_mode"`
	HTMLInstructions string      `json:"html_instructions"`
	Duration         *TextValue  `json:"duration,omitempty"`
	Distance         *TextValue  `json:"distance,omitempty"`
	StartLocation    *LatLng     `json:"start_location,omitempty"`
	EndLocation      *LatLng     `json:"end_location,omitempty"`
	Transit          *RawTransit `json:"transit_details,omitempty"`
}

type RawItinerary struct {
	Summary       string     `json:"summary"`
	Legs          []RawLeg   `json:"legs"`
	Duration      *TextValue `json:"duration,omitempty"`
	Distance      *TextValue `json:"distance,omitempty"`
	DepartureTime *TimeValue `json:"departure_time,omitempty"`
	ArrivalTime   *TimeValue `json:"arrival_time,omitempty"`
}
