package types

import "time"

// RatingSubmittedEvent is the SQS payload published after a batch of ratings is
// stored. The snapshot worker consumes it to refresh the published bite index.
type RatingSubmittedEvent struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	RatingIDs   []string  `json:"rating_ids"`
	CategoryIDs []string  `json:"fish_type_ids"`
	SubmittedAt time.Time `json:"submitted_at"`

	// Observability
	TraceID string `json:"trace_id,omitempty"`
}

// SnapshotTrigger is the payload of the scheduled snapshot invocation.
// An empty Periods list means all periods.
type SnapshotTrigger struct {
	Periods []string `json:"periods,omitempty"`
}
