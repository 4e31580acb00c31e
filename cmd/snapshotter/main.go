// Package main is the entrypoint for the Snapshotter Lambda function.
//
// The Snapshotter recomputes the bite index and publishes one zstd-compressed
// JSON object per period to the snapshot bucket. It is invoked two ways:
//
//   - by an EventBridge schedule with a SnapshotTrigger payload, and
//   - by the ratings queue, after the API stores a batch of ratings.
//
// A queue batch collapses into a single publish because every snapshot is
// rebuilt from the database, not from the event contents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"biteindex/internal/bite"
	"biteindex/internal/config"
	"biteindex/internal/db"
	"biteindex/internal/index"
	"biteindex/internal/metrics"
	"biteindex/internal/queue"
	"biteindex/internal/snapshot"
	"biteindex/internal/types"
)

// SnapshotPublisher writes snapshot objects. *snapshot.Publisher implements it.
type SnapshotPublisher interface {
	Publish(ctx context.Context, periods []bite.Period) ([]string, error)
}

// MetricsFlusher sends buffered metrics at the end of an invocation.
type MetricsFlusher interface {
	Flush(ctx context.Context) error
}

// Handler holds the dependencies of the snapshotter Lambda.
type Handler struct {
	Publisher SnapshotPublisher
	Metrics   MetricsFlusher
	Logger    *slog.Logger
}

// Handle dispatches a raw invocation payload. SQS events return a batch
// response so that only failed messages are retried.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	defer h.flush(ctx)

	var probe struct {
		Records []json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("decoding invocation payload: %w", err)
	}

	if len(probe.Records) > 0 {
		var evt events.SQSEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, fmt.Errorf("decoding SQS event: %w", err)
		}
		return h.HandleSQS(ctx, evt)
	}

	var trigger types.SnapshotTrigger
	if err := json.Unmarshal(payload, &trigger); err != nil {
		return nil, fmt.Errorf("decoding snapshot trigger: %w", err)
	}
	keys, err := h.HandleSchedule(ctx, trigger)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("published %d snapshots", len(keys)), nil
}

// HandleSchedule publishes the periods named in the trigger, or all of them.
func (h *Handler) HandleSchedule(ctx context.Context, trigger types.SnapshotTrigger) ([]string, error) {
	periods := make([]bite.Period, 0, len(trigger.Periods))
	for _, raw := range trigger.Periods {
		p, err := bite.ParsePeriod(raw)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}

	keys, err := h.Publisher.Publish(ctx, periods)
	if err != nil {
		h.logger().ErrorContext(ctx, "scheduled snapshot failed", "error", err)
		return keys, fmt.Errorf("publishing snapshots: %w", err)
	}
	h.logger().InfoContext(ctx, "scheduled snapshot complete", "objects", len(keys))
	return keys, nil
}

// HandleSQS refreshes every period once for the whole batch. Malformed
// messages are logged and dropped; when the publish fails every well-formed
// message is reported back for retry.
func (h *Handler) HandleSQS(ctx context.Context, evt events.SQSEvent) (events.SQSEventResponse, error) {
	logger := h.logger()

	var valid []string
	ratingCount := 0
	for _, msg := range evt.Records {
		event, err := queue.DecodeRatingEvent(msg.Body)
		if err != nil {
			logger.WarnContext(ctx, "dropping malformed rating event",
				"message_id", msg.MessageId,
				"error", err,
			)
			continue
		}
		valid = append(valid, msg.MessageId)
		ratingCount += len(event.RatingIDs)
	}

	var resp events.SQSEventResponse
	if len(valid) == 0 {
		return resp, nil
	}

	keys, err := h.Publisher.Publish(ctx, nil)
	if err != nil {
		logger.ErrorContext(ctx, "snapshot after ratings failed",
			"messages", len(valid),
			"error", err,
		)
		for _, id := range valid {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: id})
		}
		return resp, nil
	}

	logger.InfoContext(ctx, "snapshot refreshed after ratings",
		"messages", len(valid),
		"ratings", ratingCount,
		"objects", len(keys),
	)
	return resp, nil
}

func (h *Handler) flush(ctx context.Context) {
	if h.Metrics == nil {
		return
	}
	if err := h.Metrics.Flush(ctx); err != nil {
		h.logger().WarnContext(ctx, "metrics flush failed", "error", err)
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Snapshotter Lambda initializing (cold start)")

	cfg, err := config.LoadConfig(config.NewSecretProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.AWS.SnapshotBucket == "" {
		logger.Error("SNAPSHOT_BUCKET must be set")
		os.Exit(1)
	}

	ctx := context.Background()

	loc, err := cfg.Reservoir.Location()
	if err != nil {
		logger.Error("Invalid reservoir timezone", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			o.UsePathStyle = true
		}
	})

	var collector interface {
		snapshot.Metrics
		MetricsFlusher
	} = metrics.Noop{}
	if cfg.Observability.EnableMetrics {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		collector = metrics.NewCollector(cwClient, cfg.Observability.MetricNamespace, logger)
	}

	indexSvc := index.NewService(
		db.NewRatingRepository(pool),
		db.NewCategoryRepository(pool),
		bite.NewAggregator(loc, bite.ParseLocale(cfg.Display.Locale)),
		types.RealClock{},
		logger,
	)

	handler := &Handler{
		Publisher: snapshot.NewPublisher(
			indexSvc,
			snapshot.NewS3Store(s3Client),
			cfg.AWS.SnapshotBucket,
			cfg.AWS.SnapshotPrefix,
			collector,
			logger,
		),
		Metrics: collector,
		Logger:  logger,
	}

	logger.Info("Snapshotter Lambda initialized",
		"bucket", cfg.AWS.SnapshotBucket,
		"prefix", cfg.AWS.SnapshotPrefix,
	)

	// Local mode: read one JSON event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"periods":["today"]}' | go run ./cmd/snapshotter
	if cfg.Environment == "local" {
		logger.Info("APP_ENV=local: reading event from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("Failed to read stdin", "error", err)
			os.Exit(1)
		}
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		result, err := handler.Handle(ctx, payload)
		if err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Handler execution completed", "result", result)
		return
	}

	lambda.Start(handler.Handle)
}
