package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-planner/internal/clock"
	"transit-planner/internal/geo"
	"transit-planner/internal/itinerary"
	"transit-planner/internal/network"
	"transit-planner/internal/timetable"
)

const directionsOK = `{
  "status": "OK",
  "routes": [{
    "summary": "Line 2",
    "legs": [{
      "duration": {"text": "14 mins", "value": 840},
      "distance": {"text": "1.6 km", "value": 1600},
      "departure_time": {"text": "08:00", "value": 1700000000},
      "arrival_time": {"text": "08:14", "value": 1700000840},
      "steps": [
        {"travel_mode": "WALKING", "html_instructions": "Walk to <b>Syntagma</b>",
         "duration": {"text": "4 mins", "value": 240}, "distance": {"text": "300 m", "value": 300},
         "start_location": {"lat": 37.97, "lng": 23.73}},
        {"travel_mode": "TRANSIT", "html_instructions": "Metro towards Anthoupoli",
         "duration": {"text": "4 mins", "value": 240},
         "transit_details": {
           "line": {"name": "Line 2", "short_name": "M2", "vehicle": {"type": "SUBWAY", "name": "Metro"}},
           "departure_stop": {"name": "Syntagma"}, "arrival_stop": {"name": "Omonia"},
           "departure_time": {"text": "08:06", "value": 1700000360},
           "num_stops": 2, "headsign": "Anthoupoli"}}
      ]
    }]
  }]
}`

func TestHTTPDirections(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(directionsOK))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "secret", time.Second, nil)
	bias := geo.Point{Lat: 37.98, Lon: 23.73}
	its, err := c.Directions(context.Background(), Query{
		Origin:       Location{Text: "Syntagma"},
		Destination:  Location{Point: &geo.Point{Lat: 37.9842, Lon: 23.7281}},
		Bias:         &bias,
		Alternatives: true,
	})
	require.NoError(t, err)
	require.Len(t, its, 1)

	q := got.URL.Query()
	assert.Equal(t, "Syntagma", q.Get("origin"))
	assert.Equal(t, "37.984200,23.728100", q.Get("destination"))
	assert.Equal(t, "transit", q.Get("mode"))
	assert.Equal(t, "true", q.Get("alternatives"))
	assert.Equal(t, "37.980000,23.730000", q.Get("location"))
	assert.Equal(t, "secret", q.Get("key"))

	raw := its[0]
	assert.Equal(t, "Line 2", raw.Summary)
	assert.Equal(t, "14 mins", raw.Duration.Text)
	assert.Equal(t, int64(1700000000), raw.DepartureTime.Value)
	require.Len(t, raw.Legs, 2)
	assert.Equal(t, "WALKING", raw.Legs[0].TravelMode)
	require.NotNil(t, raw.Legs[1].Transit)
	assert.Equal(t, 2, raw.Legs[1].Transit.NumStops)
	assert.Equal(t, "M2", raw.Legs[1].Transit.Line.ShortName)
}

func TestHTTPDirectionsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
	}))
	defer srv.Close()

	its, err := NewHTTPClient(srv.URL, "", "", time.Second, nil).Directions(context.Background(), Query{})
	assert.NoError(t, err)
	assert.Empty(t, its)
}

func TestHTTPDirectionsTransportFailure(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()
		_, err := NewHTTPClient(srv.URL, "", "", time.Second, nil).Directions(context.Background(), Query{})
		assert.ErrorContains(t, err, "API returned 502")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewHTTPClient(url, "", "", time.Second, nil).Directions(context.Background(), Query{})
		assert.Error(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := NewHTTPClient("", "", "", time.Second, nil).Directions(context.Background(), Query{})
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewHTTPClient(srv.URL, "", "", 5*time.Second, nil).Directions(ctx, Query{})
		assert.Error(t, err)
	})
}

func TestHTTPGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") != "Plaka" {
			_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "OK", "results": [{"geometry": {"location": {"lat": 37.9715, "lng": 23.7297}}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("", srv.URL, "", time.Second, nil)
	pts, err := c.Geocode(context.Background(), "Plaka")
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.InDelta(t, 23.7297, pts[0].Lon, 1e-9)

	pts, err = c.Geocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, pts)
}

func athens(t *testing.T) (*network.Graph, *timetable.Lookup) {
	t.Helper()
	d, err := network.Embedded()
	require.NoError(t, err)
	g, err := network.Build(d)
	require.NoError(t, err)
	return g, timetable.New(g, d.Schedule, nil)
}

func TestStaticGeocoder(t *testing.T) {
	g, _ := athens(t)
	gc := NewStaticGeocoder(g)

	pts, err := gc.Geocode(context.Background(), "Σύνταγμα")
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.InDelta(t, 37.9755, pts[0].Lat, 1e-9)

	pts, err = gc.Geocode(context.Background(), "37.99, 23.75")
	require.NoError(t, err)
	assert.Equal(t, []geo.Point{{Lat: 37.99, Lon: 23.75}}, pts)

	pts, err = gc.Geocode(context.Background(), "nowhere in particular")
	require.NoError(t, err)
	assert.Empty(t, pts)

	_, ok := ParsePoint("91,0")
	assert.False(t, ok)
}

func TestSimulatedDirections(t *testing.T) {
	g, tt := athens(t)
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	sim := NewSimulated(g, tt, clock.NewMockClock(start), 42)

	q := Query{
		Origin:       Location{Point: &geo.Point{Lat: 37.9760, Lon: 23.7350}},
		Destination:  Location{Point: &geo.Point{Lat: 37.9845, Lon: 23.7285}},
		Alternatives: true,
	}
	its, err := sim.Directions(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, its)

	first := its[0]
	assert.Equal(t, "M2", first.Summary)
	assert.Equal(t, start.Unix(), first.DepartureTime.Value)
	require.Len(t, first.Legs, 3)
	metro := first.Legs[1].Transit
	require.NotNil(t, metro)
	assert.Equal(t, "Syntagma", metro.DepartureStop.Name)
	assert.Equal(t, "Omonia", metro.ArrivalStop.Name)
	assert.Equal(t, 2, metro.NumStops)
	assert.Equal(t, "Anthoupoli", metro.Headsign)
	assert.Equal(t, 240.0, first.Legs[1].Duration.Value)

	// endpoints about 1.1 km apart also get a walking option
	last := its[len(its)-1]
	assert.Equal(t, "Walk", last.Summary)
	require.Len(t, last.Legs, 1)

	again, err := sim.Directions(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, its, again, "same seed and query give the same answer")

	// normalizes cleanly
	norm := itinerary.NewNormalizer(g, nil).Normalize(first)
	assert.Zero(t, norm.DroppedLegs)
	assert.Equal(t, []string{"M2"}, norm.Lines)
}

func TestSimulatedInterchange(t *testing.T) {
	g, tt := athens(t)
	sim := NewSimulated(g, tt, clock.NewMockClock(time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)), 7)

	its, err := sim.Directions(context.Background(), Query{
		Origin:      Location{Text: "Syntagma"},
		Destination: Location{Text: "Kifissia"},
	})
	require.NoError(t, err)
	require.Len(t, its, 1, "too far to walk, no alternatives requested")
	assert.Equal(t, "M3, M1", its[0].Summary)
	// both endpoints are stations, so there is nothing to walk
	require.Len(t, its[0].Legs, 2)
	first, second := its[0].Legs[0].Transit, its[0].Legs[1].Transit
	assert.Equal(t, "Monastiraki", first.ArrivalStop.Name)
	assert.Equal(t, "Monastiraki", second.DepartureStop.Name)
	assert.GreaterOrEqual(t, second.DepartureTime.Value, first.ArrivalTime.Value+int64(timetable.InterchangePenalty.Seconds()))
}

func TestSimulatedUnresolved(t *testing.T) {
	g, tt := athens(t)
	sim := NewSimulated(g, tt, nil, 1)
	its, err := sim.Directions(context.Background(), Query{
		Origin:      Location{Text: "Atlantis"},
		Destination: Location{Text: "Omonia"},
	})
	assert.NoError(t, err)
	assert.Empty(t, its)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Directions(ctx, Query{Origin: Location{Text: "Omonia"}, Destination: Location{Text: "Syntagma"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1 min", FormatMinutes(20))
	assert.Equal(t, "12 mins", FormatMinutes(720))
	assert.Equal(t, "1 hour", FormatMinutes(3600))
	assert.Equal(t, "1 hour 5 mins", FormatMinutes(3900))
	assert.Equal(t, "2 hours 1 min", FormatMinutes(7260))
	assert.Equal(t, "350 m", FormatMeters(349.6))
	assert.Equal(t, "1.2 km", FormatMeters(1234))
}
