package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biteindex/internal/bite"
	"biteindex/internal/types"
)

type mockPublisher struct {
	calls [][]bite.Period
	err   error
}

func (m *mockPublisher) Publish(_ context.Context, periods []bite.Period) ([]string, error) {
	m.calls = append(m.calls, periods)
	if m.err != nil {
		return nil, m.err
	}
	n := len(periods)
	if n == 0 {
		n = len(bite.AllPeriods)
	}
	return make([]string, n), nil
}

type mockFlusher struct{ flushed int }

func (m *mockFlusher) Flush(context.Context) error { m.flushed++; return nil }

func newHandler(pub *mockPublisher) (*Handler, *mockFlusher) {
	f := &mockFlusher{}
	return &Handler{
		Publisher: pub,
		Metrics:   f,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, f
}

func ratingMessage(t *testing.T, id string) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(types.RatingSubmittedEvent{
		EventID:   "evt-" + id,
		UserID:    "42",
		RatingIDs: []string{"r1", "r2"},
	})
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestHandle_ScheduleAllPeriods(t *testing.T) {
	pub := &mockPublisher{}
	h, f := newHandler(pub)

	result, err := h.Handle(context.Background(), json.RawMessage(`{}`))

	require.NoError(t, err)
	assert.Equal(t, "published 4 snapshots", result)
	require.Len(t, pub.calls, 1)
	assert.Empty(t, pub.calls[0])
	assert.Equal(t, 1, f.flushed)
}

func TestHandle_ScheduleSelectedPeriods(t *testing.T) {
	pub := &mockPublisher{}
	h, _ := newHandler(pub)

	_, err := h.Handle(context.Background(), json.RawMessage(`{"periods":["today","week"]}`))

	require.NoError(t, err)
	assert.Equal(t, []bite.Period{bite.PeriodToday, bite.PeriodWeek}, pub.calls[0])
}

func TestHandle_ScheduleRejectsUnknownPeriod(t *testing.T) {
	pub := &mockPublisher{}
	h, f := newHandler(pub)

	_, err := h.Handle(context.Background(), json.RawMessage(`{"periods":["decade"]}`))

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidPeriod, appErr.Code)
	assert.Empty(t, pub.calls)
	assert.Equal(t, 1, f.flushed)
}

func TestHandle_SchedulePublishError(t *testing.T) {
	pub := &mockPublisher{err: errors.New("s3 down")}
	h, _ := newHandler(pub)

	_, err := h.Handle(context.Background(), json.RawMessage(`{}`))

	assert.ErrorContains(t, err, "s3 down")
}

func TestHandle_SQSBatchPublishesOnce(t *testing.T) {
	pub := &mockPublisher{}
	h, _ := newHandler(pub)

	payload, err := json.Marshal(events.SQSEvent{Records: []events.SQSMessage{
		ratingMessage(t, "m1"),
		ratingMessage(t, "m2"),
		{MessageId: "m3", Body: "not json"},
	}})
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), payload)

	require.NoError(t, err)
	resp, ok := result.(events.SQSEventResponse)
	require.True(t, ok)
	assert.Empty(t, resp.BatchItemFailures)
	require.Len(t, pub.calls, 1)
	assert.Nil(t, pub.calls[0])
}

func TestHandleSQS_OnlyMalformedSkipsPublish(t *testing.T) {
	pub := &mockPublisher{}
	h, _ := newHandler(pub)

	resp, err := h.HandleSQS(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"user_id":"42"}`},
	}})

	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Empty(t, pub.calls)
}

func TestHandleSQS_PublishFailureRetriesValidMessages(t *testing.T) {
	pub := &mockPublisher{err: errors.New("database unavailable")}
	h, _ := newHandler(pub)

	resp, err := h.HandleSQS(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		ratingMessage(t, "m1"),
		{MessageId: "bad", Body: "{"},
		ratingMessage(t, "m2"),
	}})

	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Equal(t, "m1", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, "m2", resp.BatchItemFailures[1].ItemIdentifier)
}

func TestHandle_MalformedPayload(t *testing.T) {
	h, _ := newHandler(&mockPublisher{})

	_, err := h.Handle(context.Background(), json.RawMessage(`[`))

	assert.Error(t, err)
}
