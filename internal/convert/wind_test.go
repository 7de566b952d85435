package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindDirection(t *testing.T) {
	tests := []struct {
		name string
		u, v float64
		want float64
	}{
		{"calm", 0, 0, 0},
		{"from north", 0, -5, 360},
		{"from east", -5, 0, 90},
		{"from south", 0, 5, 180},
		{"from west", 5, 0, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WindDirection(tt.u, tt.v), 1e-9)
		})
	}
}

func TestWindSpeed(t *testing.T) {
	assert.InDelta(t, 5.0, WindSpeed(3, -4), 1e-9)
	assert.Zero(t, WindSpeed(0, 0))
}

func TestWind(t *testing.T) {
	speed, dir, ok := Wind(map[string]float64{EastwardWind: -5, NorthwardWind: 0, "air_temperature": 280})
	assert.True(t, ok)
	assert.InDelta(t, 5.0, speed, 1e-9)
	assert.InDelta(t, 90.0, dir, 1e-9)

	_, _, ok = Wind(map[string]float64{EastwardWind: 1})
	assert.False(t, ok)
}
