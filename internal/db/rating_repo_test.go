package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"biteindex/internal/types"
)

var submittedAt = time.Date(2026, 10, 15, 5, 30, 0, 0, time.UTC)

func sampleRecords() []types.RatingRecord {
	return []types.RatingRecord{
		{
			ID: "7f1c9a52-4a8e-4c1b-9a3e-1d2c3b4a5f60", UserID: "279058397", CategoryID: "pike", Value: 4,
			SubmittedAt: submittedAt,
			Location:    types.Coordinate{Latitude: 55.38, Longitude: 60.40},
			Weather: &types.WeatherSnapshot{
				TemperatureC: 7.4, PressureMMHg: 744, WindSpeedMS: 3.2,
				WindDirection: "СЗ", WindDegrees: 315, Description: "пасмурно", ObservedAt: submittedAt,
			},
		},
		{
			ID: "0b5e8d1a-2f3c-4e5d-8a9b-c0d1e2f3a4b5", UserID: "279058397", CategoryID: "perch", Value: 2,
			SubmittedAt: submittedAt,
			Location:    types.Coordinate{Latitude: 55.38, Longitude: 60.40},
		},
	}
}

func TestRatingRepository_InsertBatch(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRatingRepository(db)

	var captured []any
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO ratings") && strings.Contains(sql, "unnest")
	}), mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]any) }).
		Return(pgconn.NewCommandTag("INSERT 0 2"), nil)

	err := repo.InsertBatch(context.Background(), sampleRecords())

	require.NoError(t, err)
	require.Len(t, captured, 14)
	assert.Equal(t, []string{"pike", "perch"}, captured[2])
	assert.Equal(t, []int16{4, 2}, captured[3])

	temps := captured[6].([]*float64)
	require.NotNil(t, temps[0])
	assert.Equal(t, 7.4, *temps[0])
	assert.Nil(t, temps[1], "missing weather must be stored as NULL")

	dirs := captured[9].([]*string)
	assert.Equal(t, "СЗ", *dirs[0])
	assert.Nil(t, dirs[1])
	db.AssertExpectations(t)
}

func TestRatingRepository_InsertBatch_Empty(t *testing.T) {
	db := new(mockDBTX)

	require.NoError(t, NewRatingRepository(db).InsertBatch(context.Background(), nil))
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestRatingRepository_InsertBatch_DBError(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("violates foreign key constraint"))

	err := NewRatingRepository(db).InsertBatch(context.Background(), sampleRecords())

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestRatingRepository_ListSince(t *testing.T) {
	db := new(mockDBTX)
	since := submittedAt.Add(-7 * 24 * time.Hour)

	rows := newMockRows([][]any{
		{"r1", "pike", int16(4), submittedAt},
		{"r2", "perch", int16(1), submittedAt.Add(time.Hour)},
	})
	db.On("Query", mock.Anything, mock.Anything, []any{since}).Return(rows, nil)

	got, err := NewRatingRepository(db).ListSince(context.Background(), since)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.RatingRecord{ID: "r1", CategoryID: "pike", Value: 4, SubmittedAt: submittedAt}, got[0])
	assert.Equal(t, 1, got[1].Value)
	db.AssertExpectations(t)
}

func TestRatingRepository_ListSince_QueryError(t *testing.T) {
	db := new(mockDBTX)
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := NewRatingRepository(db).ListSince(context.Background(), submittedAt)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestRatingRepository_LastRatedByUser(t *testing.T) {
	db := new(mockDBTX)
	since := submittedAt.Add(-6 * time.Hour)

	rows := newMockRows([][]any{
		{"pike", submittedAt},
		{"roach", submittedAt.Add(-time.Hour)},
	})
	db.On("Query", mock.Anything, mock.Anything, []any{"279058397", since}).Return(rows, nil)

	got, err := NewRatingRepository(db).LastRatedByUser(context.Background(), "279058397", since)

	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{
		"pike":  submittedAt,
		"roach": submittedAt.Add(-time.Hour),
	}, got)
}

func TestRatingRepository_LastRatedByUser_NoHistory(t *testing.T) {
	db := new(mockDBTX)
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(newMockRows(nil), nil)

	got, err := NewRatingRepository(db).LastRatedByUser(context.Background(), "1", submittedAt)

	require.NoError(t, err)
	assert.Empty(t, got)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestProbe(t *testing.T) {
	p := Probe{DB: fakePinger{}}
	assert.Equal(t, "database", p.Name())
	assert.NoError(t, p.Check(context.Background()))

	p = Probe{DB: fakePinger{err: errors.New("down")}}
	assert.Error(t, p.Check(context.Background()))
}

func TestEnsureSchema(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "CREATE TABLE IF NOT EXISTS ratings")
	}), mock.Anything).Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	require.NoError(t, EnsureSchema(context.Background(), db))
	db.AssertExpectations(t)
}
