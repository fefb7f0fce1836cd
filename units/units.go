// Package units provides angle and speed conversions used across the engine simulation.
// All simulation quantities are SI: radians, radians per second, seconds.
package units

import "math"

// FourPi is the length of a four-stroke combustion cycle in crank radians
// (two full crankshaft revolutions).
const FourPi = 4 * math.Pi

// Rpm converts revolutions per minute to radians per second.
func Rpm(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}

// ToRpm converts radians per second to revolutions per minute.
func ToRpm(radPerSec float64) float64 {
	return radPerSec * 60 / (2 * math.Pi)
}

// Deg converts degrees to radians.
func Deg(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDeg converts radians to degrees.
func ToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// PositiveMod computes x mod m in [0, m) (Go's math.Mod keeps the sign of x).
func PositiveMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	// -tiny + m can round up to exactly m
	if r >= m {
		r -= m
	}
	return r
}
