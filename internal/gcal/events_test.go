package gcal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventClient struct {
	gotReq EventRequest
	result *EventResult
	err    error
	block  bool
}

func (f *fakeEventClient) InsertEvent(ctx context.Context, req EventRequest) (*EventResult, error) {
	f.gotReq = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func validEventRequest() EventRequest {
	return EventRequest{
		CalendarID:      "dana@solhealth.co",
		Summary:         "Therapy Session",
		Start:           time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 55,
		TimezoneName:    "America/New_York",
	}
}

func TestCreateEventSuccess(t *testing.T) {
	client := &fakeEventClient{result: &EventResult{EventID: "evt_1", Created: true}}
	w, err := NewEventWriter(client, time.Second, nil, nil)
	require.NoError(t, err)

	got, err := w.CreateEvent(context.Background(), validEventRequest())
	require.NoError(t, err)
	assert.Equal(t, "evt_1", got.EventID)
	assert.True(t, got.Created)
	assert.False(t, got.TimedOut)
}

func TestCreateEventFillsConferenceRequestID(t *testing.T) {
	client := &fakeEventClient{result: &EventResult{EventID: "evt_1", Created: true}}
	w, err := NewEventWriter(client, time.Second, nil, nil)
	require.NoError(t, err)

	req := validEventRequest()
	req.CreateMeetLink = true
	_, err = w.CreateEvent(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, client.gotReq.ConferenceRequestID)
}

func TestCreateEventTimesOutGracefully(t *testing.T) {
	client := &fakeEventClient{block: true}
	w, err := NewEventWriter(client, 20*time.Millisecond, nil, nil)
	require.NoError(t, err)

	got, err := w.CreateEvent(context.Background(), validEventRequest())
	require.NoError(t, err, "a slow provider degrades instead of failing")
	assert.True(t, got.TimedOut)
	assert.False(t, got.Created)
	assert.Empty(t, got.EventID)
}

func TestCreateEventCallerCancellationIsAnError(t *testing.T) {
	client := &fakeEventClient{block: true}
	w, err := NewEventWriter(client, time.Minute, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = w.CreateEvent(ctx, validEventRequest())
	require.Error(t, err)
}

func TestCreateEventValidation(t *testing.T) {
	client := &fakeEventClient{result: &EventResult{Created: true}}
	w, err := NewEventWriter(client, time.Second, nil, nil)
	require.NoError(t, err)

	req := validEventRequest()
	req.CalendarID = ""
	_, err = w.CreateEvent(context.Background(), req)
	assert.Error(t, err)

	req = validEventRequest()
	req.DurationMinutes = 0
	_, err = w.CreateEvent(context.Background(), req)
	assert.Error(t, err)
}
