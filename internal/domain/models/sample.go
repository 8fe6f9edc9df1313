package models

import (
	"math"
	"time"
)

// Sample is a single tri-axial accelerometer reading. Magnitude is derived
// at construction and never mutated afterwards.
type Sample struct {
	X         float64
	Y         float64
	Z         float64
	Timestamp time.Time
	Magnitude float64
}

// NewSample builds a Sample with its Euclidean magnitude precomputed.
func NewSample(x, y, z float64, ts time.Time) Sample {
	return Sample{
		X:         x,
		Y:         y,
		Z:         z,
		Timestamp: ts,
		Magnitude: math.Sqrt(x*x + y*y + z*z),
	}
}
