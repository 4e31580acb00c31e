// Package metrics publishes service telemetry to CloudWatch. Data points are
// buffered in memory and sent in batches by Flush, so recording never blocks
// a request on a CloudWatch round trip.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"biteindex/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// maxDatumsPerCall is the PutMetricData limit.
const maxDatumsPerCall = 1000

// DefaultFlushThreshold triggers an inline flush from the recording path.
const DefaultFlushThreshold = 500

// Collector buffers metric data for CloudWatch.
//
// Metrics emitted:
//   - APIRequestCount, APILatency: Dims {Method, Endpoint, Status}
//   - RatingsSubmitted: Dims {FishType}
//   - GeofenceRejected: no dims
//   - BiteIndex, BiteSampleCount: Dims {Period, FishType}
//   - SnapshotWritten: Dims {Period}
type Collector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	threshold int
	now       func() time.Time

	mu  sync.Mutex
	buf []cwtypes.MetricDatum
}

// NewCollector creates a Collector. An empty namespace uses types.MetricNamespace.
func NewCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *Collector {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client:    client,
		namespace: namespace,
		logger:    logger,
		threshold: DefaultFlushThreshold,
		now:       time.Now,
	}
}

// RecordRequest implements core.MetricsCollector.
func (c *Collector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dim(types.DimMethod, method),
		dim(types.DimEndpoint, endpoint),
		dim(types.DimStatus, status),
	}
	c.add(
		c.datum(types.MetricAPIRequestCount, 1, cwtypes.StandardUnitCount, dims),
		c.datum(types.MetricAPILatency, float64(duration.Milliseconds()), cwtypes.StandardUnitMilliseconds, dims),
	)
}

// RecordRatingsSubmitted counts stored ratings per species.
func (c *Collector) RecordRatingsSubmitted(_ context.Context, categoryIDs []string) {
	data := make([]cwtypes.MetricDatum, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		data = append(data, c.datum(types.MetricRatingsSubmitted, 1, cwtypes.StandardUnitCount,
			[]cwtypes.Dimension{dim(types.DimFishType, id)}))
	}
	c.add(data...)
}

// RecordGeofenceRejected counts submissions refused for being off the reservoir.
func (c *Collector) RecordGeofenceRejected(_ context.Context) {
	c.add(c.datum(types.MetricGeofenceRejected, 1, cwtypes.StandardUnitCount, nil))
}

// RecordBiteIndex reports a species average and sample count for a period.
// A nil average records only the count.
func (c *Collector) RecordBiteIndex(period, categoryID string, average *float64, count int) {
	dims := []cwtypes.Dimension{dim(types.DimPeriod, period), dim(types.DimFishType, categoryID)}
	data := []cwtypes.MetricDatum{
		c.datum(types.MetricBiteSampleCount, float64(count), cwtypes.StandardUnitCount, dims),
	}
	if average != nil {
		data = append(data, c.datum(types.MetricBiteIndex, *average, cwtypes.StandardUnitNone, dims))
	}
	c.add(data...)
}

// RecordSnapshotWritten counts published snapshots.
func (c *Collector) RecordSnapshotWritten(period string) {
	c.add(c.datum(types.MetricSnapshotWritten, 1, cwtypes.StandardUnitCount,
		[]cwtypes.Dimension{dim(types.DimPeriod, period)}))
}

// Pending returns the number of buffered data points.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// Flush sends all buffered data. Data from a failed call is dropped.
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	pending := c.buf
	c.buf = nil
	c.mu.Unlock()

	var firstErr error
	for start := 0; start < len(pending); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(pending))
		_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			c.logger.Error("failed to publish metrics",
				"error", err.Error(),
				"datums", end-start,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *Collector) add(data ...cwtypes.MetricDatum) {
	c.mu.Lock()
	c.buf = append(c.buf, data...)
	full := len(c.buf) >= c.threshold
	c.mu.Unlock()

	if full {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Flush(ctx)
	}
}

func (c *Collector) datum(name string, value float64, unit cwtypes.StandardUnit, dims []cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(c.now().UTC()),
		Dimensions: dims,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// Noop discards everything. Used when metrics are disabled.
type Noop struct{}

func (Noop) RecordRequest(_, _, _ string, _ time.Duration) {}
func (Noop) RecordRatingsSubmitted(context.Context, []string) {}
func (Noop) RecordGeofenceRejected(context.Context) {}
func (Noop) RecordBiteIndex(_, _ string, _ *float64, _ int) {}
func (Noop) RecordSnapshotWritten(string) {}
func (Noop) Flush(context.Context) error { return nil }
