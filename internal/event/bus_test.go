package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	unsub := bus.Subscribe(TurnStarted, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})
	defer unsub()

	bus.PublishSync(Event{Type: TurnStarted, Data: TurnStartedData{SessionID: "s1"}})
	bus.PublishSync(Event{Type: TurnCompleted, Data: TurnCompletedData{SessionID: "s1"}})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, TurnStarted, received[0].Type)

	data, ok := received[0].Data.(TurnStartedData)
	require.True(t, ok)
	assert.Equal(t, "s1", data.SessionID)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	count := 0
	unsub := bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer unsub()

	bus.PublishSync(Event{Type: TurnStarted})
	bus.PublishSync(Event{Type: QueueUpdated})
	bus.PublishSync(Event{Type: PermissionRequired})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	count := 0
	unsub := bus.Subscribe(TextDelta, func(e Event) { count++ })

	bus.PublishSync(Event{Type: TextDelta})
	unsub()
	bus.PublishSync(Event{Type: TextDelta})

	assert.Equal(t, 1, count)
}

func TestAsyncPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	done := make(chan Event, 1)
	bus.Subscribe(ToolCallUpdated, func(e Event) {
		done <- e
	})

	bus.Publish(Event{Type: ToolCallUpdated})

	select {
	case e := <-done:
		assert.Equal(t, ToolCallUpdated, e.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestClosedBusDropsEvents(t *testing.T) {
	bus := NewBus()

	count := 0
	bus.Subscribe(TurnErrored, func(e Event) { count++ })

	require.NoError(t, bus.Close())
	bus.PublishSync(Event{Type: TurnErrored})
	assert.Equal(t, 0, count)

	// Subscribing after close is a no-op.
	unsub := bus.Subscribe(TurnErrored, func(e Event) { count++ })
	unsub()
	bus.PublishSync(Event{Type: TurnErrored})
	assert.Equal(t, 0, count)
}

func TestGlobalBusReset(t *testing.T) {
	Reset()

	count := 0
	Subscribe(QueueUpdated, func(e Event) { count++ })
	PublishSync(Event{Type: QueueUpdated})
	assert.Equal(t, 1, count)

	Reset()
	PublishSync(Event{Type: QueueUpdated})
	assert.Equal(t, 1, count)
}
