package ratings

import (
	"context"
	"errors"

	"biteindex/internal/types"
)

// LocationProvider yields the position a submission is made from.
type LocationProvider interface {
	Locate(ctx context.Context) (types.Coordinate, error)
}

// ErrLocationNotReported is returned when a client sent no position and no reason.
var ErrLocationNotReported = errors.New("location not reported")

// ReportedLocation is the fix a client attached to its request. Point is nil
// when the device could not produce one; Reason then carries the client's
// explanation, e.g. "permission denied" or "timeout".
type ReportedLocation struct {
	Point  *types.Coordinate
	Reason string
}

// Locate returns the reported point or why there is none.
func (l ReportedLocation) Locate(context.Context) (types.Coordinate, error) {
	if l.Point != nil {
		return *l.Point, nil
	}
	if l.Reason != "" {
		return types.Coordinate{}, errors.New(l.Reason)
	}
	return types.Coordinate{}, ErrLocationNotReported
}
