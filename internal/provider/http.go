package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"transit-planner/internal/geo"
	"transit-planner/internal/itinerary"
	"transit-planner/internal/logging"
)

const statusOK = "OK"

// HTTPClient talks to a directions and geocoding service with the Google
// Maps JSON shape (status, routes, legs, steps).
type HTTPClient struct {
	directionsURL string
	geocodeURL    string
	apiKey        string
	client        *http.Client
	logger        *slog.Logger
}

func NewHTTPClient(directionsURL, geocodeURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPClient{
		directionsURL: directionsURL,
		geocodeURL:    geocodeURL,
		apiKey:        apiKey,
		client:        &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Routes       []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Duration      *itinerary.TextValue `json:"duration"`
			Distance      *itinerary.TextValue `json:"distance"`
			DepartureTime *itinerary.TimeValue `json:"departure_time"`
			ArrivalTime   *itinerary.TimeValue `json:"arrival_time"`
			Steps         []itinerary.RawLeg   `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

func (c *HTTPClient) Directions(ctx context.Context, q Query) ([]itinerary.RawItinerary, error) {
	params := url.Values{}
	params.Set("origin", q.Origin.String())
	params.Set("destination", q.Destination.String())
	mode := q.Mode
	if mode == "" {
		mode = "transit"
	}
	params.Set("mode", mode)
	if q.Alternatives {
		params.Set("alternatives", "true")
	}
	if !q.DepartAt.IsZero() {
		params.Set("departure_time", strconv.FormatInt(q.DepartAt.Unix(), 10))
	}
	if q.Bias != nil {
		params.Set("location", q.Bias.String())
	}

	var resp directionsResponse
	if err := c.getJSON(ctx, c.directionsURL, params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		c.logger.Warn("directions provider returned non-OK status",
			slog.String("status", resp.Status),
			slog.String("message", resp.ErrorMessage))
		return nil, nil
	}

	out := make([]itinerary.RawItinerary, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		raw := itinerary.RawItinerary{Summary: r.Summary}
		var secs, meters float64
		for i, leg := range r.Legs {
			raw.Legs = append(raw.Legs, leg.Steps...)
			if leg.Duration != nil {
				secs += leg.Duration.Value
			}
			if leg.Distance != nil {
				meters += leg.Distance.Value
			}
			if i == 0 {
				raw.DepartureTime = leg.DepartureTime
			}
			raw.ArrivalTime = leg.ArrivalTime
		}
		if len(r.Legs) == 1 {
			raw.Duration, raw.Distance = r.Legs[0].Duration, r.Legs[0].Distance
		} else if len(r.Legs) > 1 {
			raw.Duration = &itinerary.TextValue{Text: fmt.Sprintf("%d mins", int(secs/60+0.5)), Value: secs}
			raw.Distance = &itinerary.TextValue{Text: fmt.Sprintf("%.1f km", meters/1000), Value: meters}
		}
		out = append(out, raw)
	}
	return out, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location itinerary.LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *HTTPClient) Geocode(ctx context.Context, text string) ([]geo.Point, error) {
	params := url.Values{}
	params.Set("address", text)
	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		c.logger.Warn("geocoder returned non-OK status", slog.String("status", resp.Status), slog.String("query", text))
		return nil, nil
	}
	out := make([]geo.Point, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, *r.Geometry.Location.Point())
	}
	return out, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, base string, params url.Values, v any) error {
	if base == "" {
		return fmt.Errorf("provider URL not configured")
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
