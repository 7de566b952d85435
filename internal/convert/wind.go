// Package convert derives wind speed and direction from vector components.
package convert

import "math"

// Point API variable names of the wind vector components.
const (
	EastwardWind  = "eastward_wind"
	NorthwardWind = "northward_wind"
)

// WindSpeed returns the magnitude of the (u, v) wind vector.
func WindSpeed(u, v float64) float64 {
	return math.Hypot(u, v)
}

// WindDirection returns the meteorological direction the wind blows from in
// degrees: 90 from east, 180 from south, 270 from west, 360 from north. Calm
// air is reported as 0.
func WindDirection(u, v float64) float64 {
	if u == 0 && v == 0 {
		return 0
	}
	return 180/math.Pi*math.Atan2(u, v) + 180
}

// Wind looks up the wind components in a forecast's values and converts
// them. ok is false when either component is missing.
func Wind(values map[string]float64) (speed, direction float64, ok bool) {
	u, uok := values[EastwardWind]
	v, vok := values[NorthwardWind]
	if !uok || !vok {
		return 0, 0, false
	}
	return WindSpeed(u, v), WindDirection(u, v), true
}
