package errors

import (
	"math"

	"github.com/google/uuid"
)

// ValidateNatural validates that v is a non-negative whole number. JSON
// numbers arrive as float64, so fractional and non-finite values are
// rejected here rather than silently truncated.
func ValidateNatural(v float64) error {
	if err := ValidateInteger(v); err != nil {
		return err
	}
	if v < 0 {
		return New(ErrCodeInvalidInput, "expected a natural number, got %v", v)
	}
	return nil
}

// ValidateInteger validates that v is a finite whole number.
func ValidateInteger(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return New(ErrCodeInvalidInput, "expected an integer, got %v", v)
	}
	return nil
}

// ValidatePercentage validates that v lies in [0, 100].
func ValidatePercentage(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return New(ErrCodeInvalidInput, "expected a percentage in [0, 100], got %v", v)
	}
	return nil
}

// ValidateColour validates an [h, s, l, a] colour.
//
// Validation rules:
//   - Hue in [0, 360]
//   - Saturation and lightness in [0, 100]
//   - Alpha in [0, 1]
func ValidateColour(hsla []float64) error {
	if len(hsla) != 4 {
		return New(ErrCodeInvalidInput, "colour must have 4 components, got %d", len(hsla))
	}
	limits := [4]float64{360, 100, 100, 1}
	names := [4]string{"hue", "saturation", "lightness", "alpha"}
	for i, v := range hsla {
		if math.IsNaN(v) || v < 0 || v > limits[i] {
			return New(ErrCodeInvalidInput, "colour %s %v is outside [0, %v]", names[i], v, limits[i])
		}
	}
	return nil
}

// ValidateDiagramID validates the identifier of a stored diagram.
// Identifiers are canonical UUIDs, which also keeps them safe to use in
// URLs and cache keys.
func ValidateDiagramID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "diagram id cannot be empty")
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return Wrap(ErrCodeInvalidID, err, "invalid diagram id %q", id)
	}
	if u.String() != id {
		return New(ErrCodeInvalidID, "diagram id %q is not in canonical form", id)
	}
	return nil
}
