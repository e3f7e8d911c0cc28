package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var got []string
	d.Subscribe(EventAlertFired, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.ID)
		return errors.New("delivery down")
	})
	d.Subscribe(EventAlertFired, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.ID)
		return nil
	})
	d.Subscribe(EventTicketAccepted, func(_ context.Context, e Event) error {
		got = append(got, "other:"+e.ID)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{ID: "e1", Type: EventAlertFired}))
	assert.Equal(t, []string{"first:e1", "second:e1"}, got)
}
