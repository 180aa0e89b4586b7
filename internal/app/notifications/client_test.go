package notifications_test

import (
	"context"
	"testing"

	"app/internal/app/notifications"

	"github.com/stretchr/testify/require"
)

func TestPublishFanOut(t *testing.T) {
	assert := require.New(t)

	client := notifications.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, unsubFirst := client.Subscribe(ctx)
	defer unsubFirst()

	second, unsubSecond := client.Subscribe(ctx)
	defer unsubSecond()

	for i := 0; i < 3; i++ {
		client.Publish(notifications.Event{
			Stage:  notifications.StageStarted,
			Source: "/audio/file.mp3",
		})
	}

	for i := 0; i < 3; i++ {
		event := <-first
		assert.Equal(notifications.StageStarted, event.Stage)
		assert.False(event.At.IsZero())

		assert.Equal("/audio/file.mp3", (<-second).Source)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	assert := require.New(t)

	client := notifications.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsub := client.Subscribe(ctx)
	unsub()

	client.Publish(notifications.Event{Stage: notifications.StageCompleted})

	_, ok := <-events
	assert.False(ok)
}

func TestSubscribeClosedByContext(t *testing.T) {
	assert := require.New(t)

	client := notifications.New()

	ctx, cancel := context.WithCancel(context.Background())

	events, _ := client.Subscribe(ctx)
	cancel()

	_, ok := <-events
	assert.False(ok)
}
