package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"M1":            "M1",
		" Line 1 ":      "Line_1",
		"a.b":           "a_b",
		"x>y*z":         "x_y_z",
		"route/7\tnext": "route_7_next",
		"":              "_",
	}
	for in, want := range tests {
		assert.Equal(t, want, subjectToken(in), in)
	}
}

func TestSubject(t *testing.T) {
	p := newPublisher(nil, " athens. ", false, nil, nil)
	assert.Equal(t, "athens.vehicles.M1.M1-forward-20240115-004", p.Subject("vehicles", "M1", "M1-forward-20240115-004"))
	assert.Equal(t, "athens.plans.fastest", p.Subject("plans", "fastest"))

	p = newPublisher(nil, "", false, nil, nil)
	assert.Equal(t, "transit.plan", p.Subject("plan"))
}
