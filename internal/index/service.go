// Package index is the display workflow: it loads species and ratings and
// runs them through the bite aggregator for a requested period.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"biteindex/internal/bite"
	"biteindex/internal/types"
)

// RatingLister returns every rating submitted at or after since.
type RatingLister interface {
	ListSince(ctx context.Context, since time.Time) ([]types.RatingRecord, error)
}

// CategoryLister returns the configured species.
type CategoryLister interface {
	List(ctx context.Context) ([]types.Category, error)
}

// CategorySummary is a CategoryIndex with its level band.
// Level fields are empty when the category has no ratings.
type CategorySummary struct {
	bite.CategoryIndex
	Level      bite.Level `json:"level,omitempty"`
	LevelLabel string     `json:"level_label,omitempty"`
}

// Summary is the current bite index for a period.
type Summary struct {
	Period       bite.Period       `json:"period"`
	WindowStart  time.Time         `json:"window_start"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Categories   []CategorySummary `json:"fish_types"`
	Overall      *float64          `json:"overall"`
	OverallLevel bite.Level        `json:"overall_level,omitempty"`
	OverallLabel string            `json:"overall_label,omitempty"`
	TotalRatings int               `json:"total_ratings"`
}

// LegendEntry names a series key.
type LegendEntry struct {
	CategoryID  string `json:"fish_type_id"`
	DisplayName string `json:"name"`
}

// Series is the chart data for a period.
type Series struct {
	Period      bite.Period       `json:"period"`
	WindowStart time.Time         `json:"window_start"`
	GeneratedAt time.Time         `json:"generated_at"`
	Chart       bite.ChartMeta    `json:"chart"`
	Legend      []LegendEntry     `json:"legend"`
	Buckets     []bite.TimeBucket `json:"buckets"`
}

// Snapshot holds summaries and series for several periods computed from a
// single load.
type Snapshot struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Summaries   map[bite.Period]*Summary `json:"summaries"`
	Series      map[bite.Period]*Series  `json:"series"`
}

// Service computes bite indices on demand.
type Service struct {
	ratings    RatingLister
	categories CategoryLister
	agg        *bite.Aggregator
	clock      types.Clock
	logger     *slog.Logger
}

// NewService creates a Service.
func NewService(ratings RatingLister, categories CategoryLister, agg *bite.Aggregator, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ratings: ratings, categories: categories, agg: agg, clock: clock, logger: logger}
}

// Summary returns the per-species averages and overall index for period.
func (s *Service) Summary(ctx context.Context, period bite.Period) (*Summary, error) {
	now := s.clock.Now()
	cats, recs, err := s.load(ctx, period.WindowStart(now, s.agg.Location()))
	if err != nil {
		return nil, err
	}
	return s.summarize(cats, recs, period, now), nil
}

// Series returns the chart buckets for period.
func (s *Service) Series(ctx context.Context, period bite.Period) (*Series, error) {
	now := s.clock.Now()
	cats, recs, err := s.load(ctx, period.WindowStart(now, s.agg.Location()))
	if err != nil {
		return nil, err
	}
	return s.series(cats, recs, period, now), nil
}

// Snapshot computes every period in periods from one load of the widest window.
func (s *Service) Snapshot(ctx context.Context, periods []bite.Period) (*Snapshot, error) {
	if len(periods) == 0 {
		periods = bite.AllPeriods
	}
	now := s.clock.Now()

	since := now
	for _, p := range periods {
		if !p.Valid() {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidPeriod, fmt.Sprintf("unknown period %q", p), nil)
		}
		if ws := p.WindowStart(now, s.agg.Location()); ws.Before(since) {
			since = ws
		}
	}

	cats, recs, err := s.load(ctx, since)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		GeneratedAt: now,
		Summaries:   make(map[bite.Period]*Summary, len(periods)),
		Series:      make(map[bite.Period]*Series, len(periods)),
	}
	for _, p := range periods {
		snap.Summaries[p] = s.summarize(cats, recs, p, now)
		snap.Series[p] = s.series(cats, recs, p, now)
	}
	return snap, nil
}

// load fetches categories and in-window ratings concurrently.
func (s *Service) load(ctx context.Context, since time.Time) ([]types.Category, []types.RatingRecord, error) {
	var (
		cats []types.Category
		recs []types.RatingRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = s.categories.List(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		recs, err = s.ratings.ListSince(gCtx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load bite index inputs", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return cats, recs, nil
}

func (s *Service) summarize(cats []types.Category, recs []types.RatingRecord, period bite.Period, now time.Time) *Summary {
	locale := s.agg.Locale()
	indices, overall := s.agg.ComputeIndices(recs, cats, period, now)

	out := &Summary{
		Period:      period,
		WindowStart: period.WindowStart(now, s.agg.Location()),
		GeneratedAt: now,
		Categories:  make([]CategorySummary, 0, len(indices)),
		Overall:     overall,
	}
	for _, idx := range indices {
		cs := CategorySummary{CategoryIndex: idx}
		if idx.AverageValue != nil {
			cs.Level = bite.LevelFor(*idx.AverageValue)
			cs.LevelLabel = cs.Level.Label(locale)
		}
		out.TotalRatings += idx.SampleCount
		out.Categories = append(out.Categories, cs)
	}
	if overall != nil {
		out.OverallLevel = bite.LevelFor(*overall)
		out.OverallLabel = out.OverallLevel.Label(locale)
	}
	return out
}

func (s *Service) series(cats []types.Category, recs []types.RatingRecord, period bite.Period, now time.Time) *Series {
	legend := make([]LegendEntry, 0, len(cats))
	for _, c := range cats {
		legend = append(legend, LegendEntry{CategoryID: c.ID, DisplayName: c.DisplayName})
	}
	return &Series{
		Period:      period,
		WindowStart: period.WindowStart(now, s.agg.Location()),
		GeneratedAt: now,
		Chart:       s.agg.Locale().ChartMeta(period),
		Legend:      legend,
		Buckets:     s.agg.ComputeTimeSeries(recs, cats, period, now),
	}
}
