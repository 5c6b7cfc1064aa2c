package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	// Syntagma to Monastiraki is roughly 900 m
	syntagma := Point{Lat: 37.9755, Lon: 23.7355}
	monastiraki := Point{Lat: 37.9761, Lon: 23.7255}
	d := Distance(syntagma, monastiraki)
	assert.InDelta(t, 880, d, 60)

	assert.Zero(t, Distance(syntagma, syntagma))
	assert.InDelta(t, Distance(syntagma, monastiraki), Distance(monastiraki, syntagma), 1e-9)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 37.9, Lon: 23.7}.Valid())
	assert.False(t, Point{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: -181}.Valid())
	assert.Equal(t, "37.975500,23.735500", Point{Lat: 37.9755, Lon: 23.7355}.String())
}

func TestBearing(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}
	assert.InDelta(t, 0, Bearing(origin, Point{Lat: 1, Lon: 0}), 1e-9)
	assert.InDelta(t, 90, Bearing(origin, Point{Lat: 0, Lon: 1}), 1e-9)
	assert.InDelta(t, 180, Bearing(origin, Point{Lat: -1, Lon: 0}), 1e-9)
	assert.InDelta(t, 270, Bearing(origin, Point{Lat: 0, Lon: -1}), 1e-9)
}

func TestLerp(t *testing.T) {
	a, b := Point{Lat: 10, Lon: 20}, Point{Lat: 20, Lon: 40}
	assert.Equal(t, Point{Lat: 15, Lon: 30}, Lerp(a, b, 0.5))
	assert.Equal(t, a, Lerp(a, b, -1))
	assert.Equal(t, b, Lerp(a, b, 2))
}
