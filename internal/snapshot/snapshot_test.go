package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biteindex/internal/bite"
	"biteindex/internal/index"
	"biteindex/internal/types"
)

type memStore struct {
	objects map[string][]byte
	headers map[string][2]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, headers: map[string][2]string{}}
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, body []byte, ct, ce string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[bucket+"/"+key] = body
	m.headers[bucket+"/"+key] = [2]string{ct, ce}
	return nil
}

func (m *memStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type fakeRatings struct{ recs []types.RatingRecord }

func (f fakeRatings) ListSince(context.Context, time.Time) ([]types.RatingRecord, error) {
	return f.recs, nil
}

type fakeCategories struct{}

func (fakeCategories) List(context.Context) ([]types.Category, error) {
	return []types.Category{{ID: "pike", DisplayName: "Щука"}, {ID: "perch", DisplayName: "Окунь"}}, nil
}

type recordingMetrics struct {
	written []string
	indices int
}

func (m *recordingMetrics) RecordBiteIndex(string, string, *float64, int) { m.indices++ }

func (m *recordingMetrics) RecordSnapshotWritten(period string) {
	m.written = append(m.written, period)
}

var now = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestPublisher(store ObjectStore, metrics Metrics) *Publisher {
	svc := index.NewService(
		fakeRatings{recs: []types.RatingRecord{
			{ID: "1", CategoryID: "pike", Value: 4, SubmittedAt: now.Add(-time.Hour)},
			{ID: "2", CategoryID: "pike", Value: 2, SubmittedAt: now.Add(-3 * 24 * time.Hour)},
		}},
		fakeCategories{},
		bite.NewAggregator(time.UTC, bite.LocaleRU),
		types.FixedClock{T: now},
		nil,
	)
	return NewPublisher(svc, store, "snapshots", "bite-index/", metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublish_AllPeriods(t *testing.T) {
	store := newMemStore()
	metrics := &recordingMetrics{}
	pub := newTestPublisher(store, metrics)

	keys, err := pub.Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bite-index/today.json.zst",
		"bite-index/week.json.zst",
		"bite-index/month.json.zst",
		"bite-index/year.json.zst",
	}, keys)
	assert.Equal(t, [2]string{"application/json", "zstd"}, store.headers["snapshots/bite-index/week.json.zst"])

	assert.Equal(t, []string{"today", "week", "month", "year"}, metrics.written)
	assert.Equal(t, 8, metrics.indices)
}

func TestPublish_RoundTrip(t *testing.T) {
	store := newMemStore()
	pub := newTestPublisher(store, nil)

	_, err := pub.Publish(context.Background(), []bite.Period{bite.PeriodToday, bite.PeriodWeek})
	require.NoError(t, err)

	// The stored object is a plain zstd frame.
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	_, err = dec.DecodeAll(store.objects["snapshots/bite-index/today.json.zst"], nil)
	require.NoError(t, err)

	today, err := pub.Load(context.Background(), bite.PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, bite.PeriodToday, today.Period)
	assert.True(t, today.GeneratedAt.Equal(now))
	require.NotNil(t, today.Summary.Overall)
	assert.InDelta(t, 4.0, *today.Summary.Overall, 1e-9)
	assert.Len(t, today.Series.Buckets, 1)

	week, err := pub.Load(context.Background(), bite.PeriodWeek)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, *week.Summary.Categories[0].AverageValue, 1e-9)
	assert.Nil(t, week.Summary.Categories[1].AverageValue)

	_, err = pub.Load(context.Background(), bite.PeriodYear)
	assert.Error(t, err)
}

func TestPublish_StoreError(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("access denied")

	keys, err := newTestPublisher(store, nil).Publish(context.Background(), nil)
	require.Error(t, err)
	assert.Empty(t, keys)
}

func TestPublish_InvalidPeriod(t *testing.T) {
	_, err := newTestPublisher(newMemStore(), nil).Publish(context.Background(), []bite.Period{"forever"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidPeriod, appErr.Code)
}

type fakeS3 struct {
	put *s3.PutObjectInput
	get *s3.GetObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.get = in
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("data")))}, nil
}

func TestS3Store(t *testing.T) {
	api := &fakeS3{}
	store := NewS3Store(api)

	require.NoError(t, store.PutObject(context.Background(), "b", "k", []byte("abc"), "application/json", "zstd"))
	assert.Equal(t, "b", *api.put.Bucket)
	assert.Equal(t, "k", *api.put.Key)
	assert.Equal(t, int64(3), *api.put.ContentLength)
	assert.Equal(t, "zstd", *api.put.ContentEncoding)

	rc, err := store.GetObject(context.Background(), "b", "k")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(body))
}
