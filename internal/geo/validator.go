package geo

import (
	"math"

	"biteindex/internal/types"
)

// Validator answers "is this point at the reservoir" for a fixed Boundary.
// It holds no mutable state.
type Validator struct {
	boundary Boundary
}

// NewValidator creates a Validator for the given boundary. The boundary is
// expected to come from NewBoundary or DefaultArgaziBoundary.
func NewValidator(b Boundary) *Validator {
	return &Validator{boundary: b}
}

// Boundary returns the outline the validator checks against.
func (v *Validator) Boundary() Boundary {
	return v.boundary
}

// IsWithinReservoir reports whether point is inside the polygon or within
// ToleranceKm of it. Points exactly on an edge may resolve either way.
// The input is not range-checked; callers validate coordinates first.
func (v *Validator) IsWithinReservoir(point types.Coordinate) bool {
	if v.containsPoint(point) {
		return true
	}
	return v.NearestVertexKm(point) <= v.boundary.ToleranceKm
}

// NearestVertexKm returns the haversine distance to the closest polygon vertex.
//
// This is deliberately the vertex distance and not the point-to-segment
// distance, so a point abreast of a long edge measures farther away than it
// really is.
func (v *Validator) NearestVertexKm(point types.Coordinate) float64 {
	minDist := math.Inf(1)
	for _, vertex := range v.boundary.Vertices {
		if d := HaversineKm(point, vertex); d < minDist {
			minDist = d
		}
	}
	return minDist
}

// containsPoint is an even-odd ray cast with latitude as x and longitude as y.
func (v *Validator) containsPoint(p types.Coordinate) bool {
	vs := v.boundary.Vertices
	inside := false
	for i, j := 0, len(vs)-1; i < len(vs); j, i = i, i+1 {
		xi, yi := vs[i].Latitude, vs[i].Longitude
		xj, yj := vs[j].Latitude, vs[j].Longitude

		// yi == yj never reaches the division because the first clause is false.
		if (yi > p.Longitude) != (yj > p.Longitude) &&
			p.Latitude < (xj-xi)*(p.Longitude-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
