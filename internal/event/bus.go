// Package event provides the pub/sub bus that carries session, turn, tool
// call and permission notifications to UI collaborators. It is built on
// watermill's gochannel pub/sub with direct subscriber dispatch so typed
// payloads survive delivery.
package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventType identifies the kind of event.
type EventType string

const (
	SessionUpdated     EventType = "session.updated"
	TurnStarted        EventType = "turn.started"
	TurnCompleted      EventType = "turn.completed"
	TurnErrored        EventType = "turn.errored"
	TurnAborted        EventType = "turn.aborted"
	TextDelta          EventType = "turn.delta"
	ToolCallUpdated    EventType = "toolcall.updated"
	PermissionRequired EventType = "permission.required"
	PermissionResolved EventType = "permission.resolved"
	QueueUpdated       EventType = "queue.updated"
	GuardTriggered     EventType = "guard.triggered"
	QuestionAsked      EventType = "question.asked"
	QuestionAnswered   EventType = "question.answered"
	WorkspaceNotice    EventType = "workspace.notice"
	WorkspaceOpenFile  EventType = "workspace.open-file"
	WorkspaceCommand   EventType = "workspace.command"
)

// Event is a typed notification with an arbitrary payload.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber receives events.
type Subscriber func(event Event)

// Bus is a pub/sub event bus. The zero value is not usable; call NewBus.
type Bus struct {
	mu     sync.RWMutex
	pubsub *gochannel.GoChannel

	byType map[EventType]map[uint64]Subscriber
	all    map[uint64]Subscriber
	nextID uint64
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
		byType: make(map[EventType]map[uint64]Subscriber),
		all:    make(map[uint64]Subscriber),
	}
}

// globalBus serves the package-level convenience functions.
var globalBus atomic.Pointer[Bus]

func init() {
	globalBus.Store(NewBus())
}

// Subscribe registers a subscriber for one event type on the global bus.
// The returned function unsubscribes.
func Subscribe(eventType EventType, fn Subscriber) func() {
	return globalBus.Load().Subscribe(eventType, fn)
}

// SubscribeAll registers a subscriber for every event on the global bus.
func SubscribeAll(fn Subscriber) func() {
	return globalBus.Load().SubscribeAll(fn)
}

// Publish sends an event on the global bus, each subscriber in its own
// goroutine.
func Publish(event Event) {
	globalBus.Load().Publish(event)
}

// PublishSync sends an event on the global bus, calling every subscriber
// before returning.
func PublishSync(event Event) {
	globalBus.Load().PublishSync(event)
}

// Reset replaces the global bus, dropping all subscribers. For tests.
func Reset() {
	old := globalBus.Swap(NewBus())
	_ = old.Close()
	// Give in-flight goroutine deliveries a moment to settle.
	time.Sleep(10 * time.Millisecond)
}

// Subscribe registers a subscriber for one event type.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	if b.byType[eventType] == nil {
		b.byType[eventType] = make(map[uint64]Subscriber)
	}
	b.byType[eventType][id] = fn

	return func() {
		b.mu.Lock()
		delete(b.byType[eventType], id)
		b.mu.Unlock()
	}
}

// SubscribeAll registers a subscriber for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.all[id] = fn

	return func() {
		b.mu.Lock()
		delete(b.all, id)
		b.mu.Unlock()
	}
}

// collect gathers the subscribers for an event under the read lock.
func (b *Bus) collect(eventType EventType) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	subs := make([]Subscriber, 0, len(b.byType[eventType])+len(b.all))
	for _, fn := range b.byType[eventType] {
		subs = append(subs, fn)
	}
	for _, fn := range b.all {
		subs = append(subs, fn)
	}
	return subs
}

// Publish delivers an event asynchronously, one goroutine per subscriber
// so a slow consumer never blocks the controller.
func (b *Bus) Publish(event Event) {
	for _, fn := range b.collect(event.Type) {
		go fn(event)
	}
}

// PublishSync delivers an event in the calling goroutine.
func (b *Bus) PublishSync(event Event) {
	for _, fn := range b.collect(event.Type) {
		fn(event)
	}
}

// Close shuts the bus down; further publishes are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.byType = make(map[EventType]map[uint64]Subscriber)
	b.all = make(map[uint64]Subscriber)
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub exposes the underlying watermill channel for middleware or a
// future distributed backend.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
