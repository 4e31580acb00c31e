// Package snapshot publishes precomputed bite indices to S3 as
// zstd-compressed JSON, one object per period. Clients and dashboards can read
// them without touching the database.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"biteindex/internal/bite"
	"biteindex/internal/index"
)

const (
	contentType     = "application/json"
	contentEncoding = "zstd"
	objectSuffix    = ".json.zst"
)

// ObjectStore abstracts the S3 operations the publisher needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType, contentEncoding string) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Source computes snapshots. *index.Service implements it.
type Source interface {
	Snapshot(ctx context.Context, periods []bite.Period) (*index.Snapshot, error)
}

// Metrics receives per-publish telemetry.
type Metrics interface {
	RecordBiteIndex(period, categoryID string, average *float64, count int)
	RecordSnapshotWritten(period string)
}

// Document is the content of one snapshot object.
type Document struct {
	Period      bite.Period    `json:"period"`
	GeneratedAt time.Time      `json:"generated_at"`
	Summary     *index.Summary `json:"summary"`
	Series      *index.Series  `json:"series"`
}

// Publisher writes snapshot documents to a bucket.
type Publisher struct {
	source  Source
	store   ObjectStore
	bucket  string
	prefix  string
	metrics Metrics
	logger  *slog.Logger

	encoders sync.Pool
	decoders sync.Pool
}

// NewPublisher creates a Publisher. Metrics may be nil.
func NewPublisher(source Source, store ObjectStore, bucket, prefix string, metrics Metrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		source:  source,
		store:   store,
		bucket:  bucket,
		prefix:  prefix,
		metrics: metrics,
		logger:  logger,
		encoders: sync.Pool{
			New: func() any {
				e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
				}
				return e
			},
		},
		decoders: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
	}
}

// Key returns the object key for period.
func (p *Publisher) Key(period bite.Period) string {
	return p.prefix + string(period) + objectSuffix
}

// Publish computes the requested periods (all when empty) and writes one
// object per period. It returns the keys written.
func (p *Publisher) Publish(ctx context.Context, periods []bite.Period) ([]string, error) {
	if len(periods) == 0 {
		periods = bite.AllPeriods
	}

	snap, err := p.source.Snapshot(ctx, periods)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(periods))
	for _, period := range periods {
		doc := Document{
			Period:      period,
			GeneratedAt: snap.GeneratedAt,
			Summary:     snap.Summaries[period],
			Series:      snap.Series[period],
		}
		body, err := p.encode(doc)
		if err != nil {
			return keys, err
		}

		key := p.Key(period)
		if err := p.store.PutObject(ctx, p.bucket, key, body, contentType, contentEncoding); err != nil {
			return keys, fmt.Errorf("snapshot: writing %s: %w", key, err)
		}
		keys = append(keys, key)

		if p.metrics != nil {
			p.metrics.RecordSnapshotWritten(string(period))
			for _, c := range doc.Summary.Categories {
				p.metrics.RecordBiteIndex(string(period), c.CategoryID, c.AverageValue, c.SampleCount)
			}
		}
		p.logger.InfoContext(ctx, "snapshot written",
			"key", key,
			"bytes", len(body),
			"ratings", doc.Summary.TotalRatings,
		)
	}
	return keys, nil
}

// Load reads back the published document for period.
func (p *Publisher) Load(ctx context.Context, period bite.Period) (*Document, error) {
	rc, err := p.store.GetObject(ctx, p.bucket, p.Key(period))
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading %s: %w", p.Key(period), err)
	}
	defer rc.Close()

	compressed, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading %s: %w", p.Key(period), err)
	}

	decoder := p.decoders.Get().(*zstd.Decoder)
	defer p.decoders.Put(decoder)

	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: zstd decompression failed: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: decoding %s: %w", p.Key(period), err)
	}
	return &doc, nil
}

func (p *Publisher) encode(doc Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encoding %s: %w", doc.Period, err)
	}

	encoder := p.encoders.Get().(*zstd.Encoder)
	defer p.encoders.Put(encoder)

	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}
