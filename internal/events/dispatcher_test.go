package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mortgage-service/internal/domain"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestInMemoryDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var got []Event
	dispatcher.Subscribe(EventStatusChanged, func(_ context.Context, event Event) error {
		got = append(got, event)
		return nil
	})
	// A failing handler must not block the others.
	dispatcher.Subscribe(EventStatusChanged, func(context.Context, Event) error {
		return errors.New("handler boom")
	})
	var gotSecond []Event
	dispatcher.Subscribe(EventStatusChanged, func(_ context.Context, event Event) error {
		gotSecond = append(gotSecond, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{ID: "evt-1", Type: EventStatusChanged})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, gotSecond, 1)
}

func TestInMemoryDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventApplicationCreated, func(context.Context, Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventStatusChanged}))
	assert.False(t, called)
}

func TestFanOutStopsOnFirstError(t *testing.T) {
	fine := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("sns down")}
	after := &recordingPublisher{}

	publisher := NewFanOut(fine, nil, failing, after)
	err := publisher.Publish(context.Background(), Event{ID: "evt-1"})
	require.Error(t, err)
	assert.Len(t, fine.events, 1)
	assert.Empty(t, after.events)
}

func TestDecodeStatusChangedRoundTrip(t *testing.T) {
	borrowerID := "user-1"
	original := Event{
		ID:            "evt-1",
		Type:          EventStatusChanged,
		ApplicationID: "app-1",
		BorrowerID:    borrowerID,
		Actor:         Actor{Type: domain.SubjectTypeBorrower, BorrowerID: &borrowerID},
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		Payload: StatusChangedPayload{
			PreviousStatus: domain.StatusDraft,
			NewStatus:      domain.StatusSubmitted,
			Notes:          "ready",
		},
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	event, payload, err := DecodeStatusChanged(data)
	require.NoError(t, err)
	assert.Equal(t, original.ID, event.ID)
	assert.Equal(t, original.ApplicationID, event.ApplicationID)
	assert.Equal(t, domain.StatusDraft, payload.PreviousStatus)
	assert.Equal(t, domain.StatusSubmitted, payload.NewStatus)
	assert.Equal(t, "ready", payload.Notes)
}

func TestDecodeStatusChangedMalformed(t *testing.T) {
	_, _, err := DecodeStatusChanged([]byte("{oops"))
	assert.Error(t, err)

	_, _, err = DecodeStatusChanged([]byte(`{"payload": "not-an-object"}`))
	assert.Error(t, err)
}
