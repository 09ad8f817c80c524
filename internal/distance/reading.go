// v0
// internal/distance/reading.go
package distance

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNegative  = errors.New("distance must be non-negative")
	ErrNotFinite = errors.New("distance must be a finite number")
)

// Reading is the latest pair of ultrasonic distances in centimeters. The
// JSON names are the ones the firmware has always emitted ("gauche" is the
// left sensor, "droite" the right one).
type Reading struct {
	Left  float64 `json:"gauche"`
	Right float64 `json:"droite"`
}

// Zero is the reading displayed when nothing could be fetched.
func Zero() Reading { return Reading{} }

// Validate rejects values a sensor cannot produce.
func (r Reading) Validate() error {
	if err := checkSide("gauche", r.Left); err != nil {
		return err
	}
	return checkSide("droite", r.Right)
}

// Min returns the smaller of the two distances.
func (r Reading) Min() float64 {
	return math.Min(r.Left, r.Right)
}

func checkSide(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: %w", name, ErrNotFinite)
	}
	if v < 0 {
		return fmt.Errorf("%s=%g: %w", name, v, ErrNegative)
	}
	return nil
}
