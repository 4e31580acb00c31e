package index

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biteindex/internal/bite"
	"biteindex/internal/types"
)

type fakeRatings struct {
	recs  []types.RatingRecord
	err   error
	since []time.Time
}

func (f *fakeRatings) ListSince(_ context.Context, since time.Time) ([]types.RatingRecord, error) {
	f.since = append(f.since, since)
	if f.err != nil {
		return nil, f.err
	}
	var out []types.RatingRecord
	for _, r := range f.recs {
		if !r.SubmittedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCategories struct {
	cats []types.Category
	err  error
}

func (f fakeCategories) List(context.Context) ([]types.Category, error) { return f.cats, f.err }

var (
	now  = time.Date(2025, 10, 15, 12, 30, 0, 0, time.UTC)
	cats = []types.Category{
		{ID: "pike", DisplayName: "Щука", SortOrder: 1},
		{ID: "perch", DisplayName: "Окунь", SortOrder: 2},
		{ID: "roach", DisplayName: "Плотва", SortOrder: 3},
	}
)

func rating(cat string, v int, at time.Time) types.RatingRecord {
	return types.RatingRecord{ID: cat + at.String(), CategoryID: cat, Value: v, SubmittedAt: at}
}

func newTestService(recs []types.RatingRecord) (*Service, *fakeRatings) {
	store := &fakeRatings{recs: recs}
	svc := NewService(store, fakeCategories{cats: cats}, bite.NewAggregator(time.UTC, bite.LocaleRU),
		types.FixedClock{T: now}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store
}

func TestSummary(t *testing.T) {
	svc, store := newTestService([]types.RatingRecord{
		rating("pike", 4, now.Add(-2*time.Hour)),
		rating("pike", 5, now.Add(-time.Hour)),
		rating("perch", 2, now.Add(-time.Hour)),
		rating("perch", 3, now.Add(-48*time.Hour)),
	})

	sum, err := svc.Summary(context.Background(), bite.PeriodToday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), store.since[0])
	require.Len(t, sum.Categories, 3)

	pike := sum.Categories[0]
	assert.Equal(t, "pike", pike.CategoryID)
	assert.InDelta(t, 4.5, *pike.AverageValue, 1e-9)
	assert.Equal(t, bite.LevelBiting, pike.Level)
	assert.Equal(t, "Клюёт!", pike.LevelLabel)

	perch := sum.Categories[1]
	assert.Equal(t, 1, perch.SampleCount)
	assert.Equal(t, bite.LevelNone, perch.Level)

	roach := sum.Categories[2]
	assert.Nil(t, roach.AverageValue)
	assert.Empty(t, roach.Level)

	require.NotNil(t, sum.Overall)
	assert.InDelta(t, 3.25, *sum.Overall, 1e-9)
	assert.Equal(t, bite.LevelModerate, sum.OverallLevel)
	assert.Equal(t, 3, sum.TotalRatings)
}

func TestSummary_JSONShape(t *testing.T) {
	svc, _ := newTestService(nil)

	sum, err := svc.Summary(context.Background(), bite.PeriodWeek)
	require.NoError(t, err)

	raw, err := json.Marshal(sum)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["overall"])
	assert.NotContains(t, decoded, "overall_level")

	first := decoded["fish_types"].([]any)[0].(map[string]any)
	assert.Equal(t, "pike", first["fish_type_id"])
	assert.Contains(t, first, "average")
	assert.Nil(t, first["average"])
	assert.Equal(t, float64(0), first["count"])
}

func TestSeries(t *testing.T) {
	svc, _ := newTestService([]types.RatingRecord{
		rating("pike", 4, time.Date(2025, 10, 15, 10, 15, 0, 0, time.UTC)),
		rating("pike", 3, time.Date(2025, 10, 15, 10, 45, 0, 0, time.UTC)),
		rating("perch", 2, time.Date(2025, 10, 15, 8, 5, 0, 0, time.UTC)),
	})

	series, err := svc.Series(context.Background(), bite.PeriodToday)
	require.NoError(t, err)

	assert.Equal(t, "Динамика сегодня", series.Chart.Title)
	require.Len(t, series.Legend, 3)
	require.Len(t, series.Buckets, 2)
	assert.Equal(t, "8:00", series.Buckets[0].Label)
	assert.Equal(t, map[string]float64{"perch": 2}, series.Buckets[0].Values)
	assert.Equal(t, "10:00", series.Buckets[1].Label)
	assert.Equal(t, map[string]float64{"pike": 3.5}, series.Buckets[1].Values)
}

func TestSnapshot_LoadsWidestWindowOnce(t *testing.T) {
	svc, store := newTestService([]types.RatingRecord{
		rating("pike", 4, now.Add(-time.Hour)),
		rating("pike", 2, now.Add(-20*24*time.Hour)),
	})

	snap, err := svc.Snapshot(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, store.since, 1)
	assert.Equal(t, now.Add(-365*24*time.Hour), store.since[0])

	assert.Len(t, snap.Summaries, len(bite.AllPeriods))
	assert.Len(t, snap.Series, len(bite.AllPeriods))
	assert.InDelta(t, 4.0, *snap.Summaries[bite.PeriodWeek].Categories[0].AverageValue, 1e-9)
	assert.InDelta(t, 3.0, *snap.Summaries[bite.PeriodMonth].Categories[0].AverageValue, 1e-9)
}

func TestSnapshot_RejectsUnknownPeriod(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.Snapshot(context.Background(), []bite.Period{"decade"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidPeriod, appErr.Code)
}

func TestSummary_LoadErrors(t *testing.T) {
	dbErr := types.NewAppError(types.ErrCodeInternalDB, "query failed", nil)

	t.Run("ratings", func(t *testing.T) {
		svc := NewService(&fakeRatings{err: dbErr}, fakeCategories{cats: cats},
			bite.NewAggregator(time.UTC, bite.LocaleRU), types.FixedClock{T: now}, nil)
		_, err := svc.Summary(context.Background(), bite.PeriodToday)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("categories", func(t *testing.T) {
		svc := NewService(&fakeRatings{}, fakeCategories{err: dbErr},
			bite.NewAggregator(time.UTC, bite.LocaleRU), types.FixedClock{T: now}, nil)
		_, err := svc.Series(context.Background(), bite.PeriodYear)
		assert.ErrorIs(t, err, dbErr)
	})
}
