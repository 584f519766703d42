package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var calls []string
	d.Subscribe(EventUserCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.UserID)
		return errors.New("first failed")
	})
	d.Subscribe(EventUserCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		calls = append(calls, "deleted")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserCreated, UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Contains(t, err.Error(), string(EventUserCreated))
	assert.Equal(t, []string{"first:u1", "second:u1"}, calls)
}

func TestDispatcher_RecoversPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()

	var after bool
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error { panic("broken subscriber") })
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error {
		after = true
		return nil
	})

	var err error
	assert.NotPanics(t, func() {
		err = d.Publish(context.Background(), Event{Type: EventUserUpdated})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken subscriber")
	assert.True(t, after)
}

func TestDispatcher_StampsEvent(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got Event
	d.Subscribe(EventUserActivated, func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserActivated}))
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserActivated, ID: "fixed"}))
	assert.Equal(t, "fixed", got.ID)
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventUserActivated}))
}
