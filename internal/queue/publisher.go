// Package queue publishes rating events to SQS so the snapshot worker can
// refresh the published bite index after new ratings arrive.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"biteindex/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// EventTypeRatingsSubmitted is carried in the event_type message attribute.
const EventTypeRatingsSubmitted = "ratings.submitted"

// RatingPublisher sends a RatingSubmittedEvent for each stored batch.
type RatingPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewRatingPublisher creates a publisher for the given queue.
func NewRatingPublisher(client SQSSender, queueURL string, logger *slog.Logger) *RatingPublisher {
	return &RatingPublisher{client: client, queueURL: queueURL, logger: logger}
}

// PublishRatings announces a stored batch. Records must share one user.
func (p *RatingPublisher) PublishRatings(ctx context.Context, records []types.RatingRecord) error {
	if len(records) == 0 {
		return nil
	}

	evt := types.RatingSubmittedEvent{
		EventID:     uuid.NewString(),
		UserID:      records[0].UserID,
		RatingIDs:   make([]string, 0, len(records)),
		CategoryIDs: make([]string, 0, len(records)),
		SubmittedAt: records[0].SubmittedAt,
		TraceID:     types.GetRequestID(ctx),
	}
	for _, r := range records {
		evt.RatingIDs = append(evt.RatingIDs, r.ID)
		evt.CategoryIDs = append(evt.CategoryIDs, r.CategoryID)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal RatingSubmittedEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(EventTypeRatingsSubmitted),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send RatingSubmittedEvent to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "ratings event sent",
		"queue_url", p.queueURL,
		"event_id", evt.EventID,
		"trace_id", evt.TraceID,
		"ratings", len(evt.RatingIDs),
	)
	return nil
}

// DecodeRatingEvent parses an SQS message body produced by PublishRatings.
func DecodeRatingEvent(body string) (types.RatingSubmittedEvent, error) {
	var evt types.RatingSubmittedEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		return evt, fmt.Errorf("queue: malformed RatingSubmittedEvent: %w", err)
	}
	if evt.EventID == "" {
		return evt, fmt.Errorf("queue: RatingSubmittedEvent without event_id")
	}
	return evt, nil
}

// NoopPublisher discards events. Used when no queue is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishRatings(context.Context, []types.RatingRecord) error { return nil }
