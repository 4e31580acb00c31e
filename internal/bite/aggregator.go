// Package bite turns raw ratings into the bite index: per-species averages for
// a period and a time-bucketed series for charting. Every call recomputes from
// its input, so results do not depend on input order or on earlier calls.
package bite

import (
	"math"
	"sort"
	"time"

	"biteindex/internal/types"
)

// CategoryIndex is the current average for one category.
// AverageValue is nil when SampleCount is zero.
type CategoryIndex struct {
	CategoryID   string   `json:"fish_type_id"`
	DisplayName  string   `json:"name"`
	AverageValue *float64 `json:"average"`
	SampleCount  int      `json:"count"`
}

// TimeBucket holds the per-category mean for one chart interval.
// Categories with no ratings in the bucket are absent from Values.
type TimeBucket struct {
	Label  string             `json:"label"`
	Start  time.Time          `json:"start"`
	Values map[string]float64 `json:"values"`
}

// Aggregator computes indices in a fixed time zone and label locale.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	loc    *time.Location
	locale Locale
}

// NewAggregator creates an Aggregator. A nil location means UTC.
func NewAggregator(loc *time.Location, locale Locale) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc, locale: ParseLocale(string(locale))}
}

// Location returns the zone used for "today" and for bucket boundaries.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Locale returns the label locale.
func (a *Aggregator) Locale() Locale {
	return a.locale
}

type accumulator struct {
	sum   int
	count int
}

func (acc accumulator) mean() float64 {
	return float64(acc.sum) / float64(acc.count)
}

// ComputeIndices returns one entry per category, in the order given, and the
// overall index.
//
// The overall index is the mean of the per-category means, not the mean of all
// ratings, so a heavily rated species cannot drown out the others. Categories
// without ratings are left out of it; if none have ratings it is nil.
func (a *Aggregator) ComputeIndices(
	ratings []types.RatingRecord,
	categories []types.Category,
	period Period,
	now time.Time,
) ([]CategoryIndex, *float64) {
	start := period.WindowStart(now, a.loc)

	byCategory := make(map[string]accumulator, len(categories))
	for _, r := range ratings {
		if r.SubmittedAt.Before(start) {
			continue
		}
		acc := byCategory[r.CategoryID]
		acc.sum += r.Value
		acc.count++
		byCategory[r.CategoryID] = acc
	}

	indices := make([]CategoryIndex, 0, len(categories))
	var meanSum float64
	var populated int
	for _, c := range categories {
		idx := CategoryIndex{CategoryID: c.ID, DisplayName: c.DisplayName}
		if acc, ok := byCategory[c.ID]; ok && acc.count > 0 {
			avg := acc.mean()
			idx.AverageValue = &avg
			idx.SampleCount = acc.count
			meanSum += avg
			populated++
		}
		indices = append(indices, idx)
	}

	if populated == 0 {
		return indices, nil
	}
	overall := meanSum / float64(populated)
	return indices, &overall
}

// ComputeTimeSeries groups in-window ratings of known categories into buckets
// and returns them in chronological order. Each value is the bucket mean
// rounded to one decimal.
func (a *Aggregator) ComputeTimeSeries(
	ratings []types.RatingRecord,
	categories []types.Category,
	period Period,
	now time.Time,
) []TimeBucket {
	start := period.WindowStart(now, a.loc)

	known := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}

	type bucket struct {
		label string
		start time.Time
		accs  map[string]accumulator
	}
	buckets := make(map[int64]*bucket)

	for _, r := range ratings {
		if r.SubmittedAt.Before(start) {
			continue
		}
		if _, ok := known[r.CategoryID]; !ok {
			continue
		}
		bStart, label := a.bucketFor(r.SubmittedAt, start, period)
		key := bStart.UnixNano()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{label: label, start: bStart, accs: make(map[string]accumulator)}
			buckets[key] = b
		}
		acc := b.accs[r.CategoryID]
		acc.sum += r.Value
		acc.count++
		b.accs[r.CategoryID] = acc
	}

	series := make([]TimeBucket, 0, len(buckets))
	for _, b := range buckets {
		values := make(map[string]float64, len(b.accs))
		for id, acc := range b.accs {
			values[id] = roundTenth(acc.mean())
		}
		series = append(series, TimeBucket{Label: b.label, Start: b.start, Values: values})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Start.Before(series[j].Start)
	})
	return series
}

// bucketFor returns the start of the bucket containing t and its label.
func (a *Aggregator) bucketFor(t, windowStart time.Time, period Period) (time.Time, string) {
	local := t.In(a.loc)
	switch period {
	case PeriodToday:
		y, m, d := local.Date()
		h := time.Date(y, m, d, local.Hour(), 0, 0, 0, a.loc)
		return h, a.locale.hourLabel(h)
	case PeriodYear:
		n := int(t.Sub(windowStart)/week) + 1
		return windowStart.Add(time.Duration(n-1) * week), a.locale.weekLabel(n)
	default:
		y, m, d := local.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, a.loc)
		return midnight, a.locale.dayLabel(midnight)
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
