// Package geo decides whether a reported position counts as being at the
// reservoir. It is pure computation with no I/O and is safe for concurrent use.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"biteindex/internal/types"
)

// DefaultToleranceKm is how far outside the polygon a position may be and
// still be accepted.
const DefaultToleranceKm = 1.0

// argaziPolygon is the outline of the Argazi reservoir, Chelyabinsk oblast.
var argaziPolygon = []types.Coordinate{
	{Latitude: 55.480871, Longitude: 60.302051},
	{Latitude: 55.051804, Longitude: 59.837034},
	{Latitude: 54.951552, Longitude: 60.257504},
	{Latitude: 55.370411, Longitude: 60.505119},
	{Latitude: 55.488239, Longitude: 60.407015},
}

// Boundary is a simple closed polygon plus a tolerance buffer in kilometres.
// The closing edge from the last vertex back to the first is implicit.
type Boundary struct {
	Vertices    []types.Coordinate
	ToleranceKm float64
}

// DefaultArgaziBoundary returns the built-in reservoir outline with the
// default tolerance.
func DefaultArgaziBoundary() Boundary {
	vertices := make([]types.Coordinate, len(argaziPolygon))
	copy(vertices, argaziPolygon)
	return Boundary{Vertices: vertices, ToleranceKm: DefaultToleranceKm}
}

// NewBoundary checks and copies the supplied outline.
func NewBoundary(vertices []types.Coordinate, toleranceKm float64) (Boundary, error) {
	if len(vertices) < 3 {
		return Boundary{}, fmt.Errorf("boundary needs at least 3 vertices, got %d", len(vertices))
	}
	if math.IsNaN(toleranceKm) || math.IsInf(toleranceKm, 0) || toleranceKm < 0 {
		return Boundary{}, fmt.Errorf("tolerance must be a non-negative finite number, got %v", toleranceKm)
	}
	for i, v := range vertices {
		if err := types.ValidateCoordinate(v); err != nil {
			return Boundary{}, fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	copied := make([]types.Coordinate, len(vertices))
	copy(copied, vertices)
	return Boundary{Vertices: copied, ToleranceKm: toleranceKm}, nil
}

// ParseBoundaryJSON reads an outline encoded as [[lat, lon], ...].
func ParseBoundaryJSON(raw string, toleranceKm float64) (Boundary, error) {
	if raw == "" {
		return Boundary{}, errors.New("empty polygon")
	}
	var pairs [][]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return Boundary{}, fmt.Errorf("decoding polygon: %w", err)
	}
	vertices := make([]types.Coordinate, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return Boundary{}, fmt.Errorf("vertex %d: want [lat, lon], got %d values", i, len(p))
		}
		vertices = append(vertices, types.Coordinate{Latitude: p[0], Longitude: p[1]})
	}
	return NewBoundary(vertices, toleranceKm)
}
