package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftscan/craftscan/internal/events"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(events.TopicScanProgress, "payload")

	select {
	case evt := <-ch:
		assert.Equal(t, events.TopicScanProgress, evt.Topic)
		assert.Equal(t, "payload", evt.Payload)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusFanOut(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()

	chA, cancelA := bus.Subscribe()
	defer cancelA()
	chB, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(events.TopicExportCompleted, 42)

	for _, ch := range []<-chan events.Event{chA, chB} {
		select {
		case evt := <-ch:
			assert.Equal(t, 42, evt.Payload)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed event")
		}
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()

	// Channel is closed; publishing afterwards must not panic.
	bus.Publish(events.TopicScanProgress, "late")

	_, open := <-ch
	assert.False(t, open)
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	// Never read; overflow the subscriber buffer.
	for i := 0; i < 300; i++ {
		bus.Publish(events.TopicScanProgress, i)
	}

	assert.Positive(t, bus.Dropped())
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := events.NewBus(nil)

	ch, cancel := bus.Subscribe()
	bus.Close()

	_, open := <-ch
	require.False(t, open)

	// Cancel after Close must be a no-op.
	cancel()
}
