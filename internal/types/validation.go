package types

import (
	"fmt"
	"math"
)

// Validation constraint constants.
const (
	MinLat    = -90.0
	MaxLat    = 90.0
	MinLon    = -180.0
	MaxLon    = 180.0
	MinRating = 1
	MaxRating = 5

	// MaxRatingsPerSubmission bounds a batch submission. There are only a
	// handful of species so this is generous.
	MaxRatingsPerSubmission = 20
)

// ValidateCoordinate checks that a point lies within WGS84 bounds and is finite.
// The geofence itself performs no validation, so this must run at the boundary.
func ValidateCoordinate(c Coordinate) error {
	if math.IsNaN(c.Latitude) || c.Latitude < MinLat || c.Latitude > MaxLat {
		return NewAppError(ErrCodeValidationInvalidLat,
			fmt.Sprintf("latitude %v outside [%.0f, %.0f]", c.Latitude, MinLat, MaxLat), nil)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < MinLon || c.Longitude > MaxLon {
		return NewAppError(ErrCodeValidationInvalidLon,
			fmt.Sprintf("longitude %v outside [%.0f, %.0f]", c.Longitude, MinLon, MaxLon), nil)
	}
	return nil
}

// ValidateRating checks that a rating value is on the 1..5 scale.
func ValidateRating(value int) error {
	if value < MinRating || value > MaxRating {
		return NewAppError(ErrCodeValidationInvalidRating,
			fmt.Sprintf("rating must be between %d and %d, got %d", MinRating, MaxRating, value), nil)
	}
	return nil
}
