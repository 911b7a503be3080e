// Package eventbus provides the publish/subscribe object shared by the mode
// manager, the orchestrator and whatever renders the conversation. Its
// lifecycle belongs to whoever constructs the orchestrator.
package eventbus

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Topic names an event stream.
type Topic string

const (
	TopicModeSwitched          Topic = "mode:switched"
	TopicChatMessage           Topic = "chat:message"
	TopicChatMessageRemoved    Topic = "chat:message:removed"
	TopicChatMessageUpdated    Topic = "chat:message:updated"
	TopicConfirmationRequested Topic = "chat:confirmation:requested"
	TopicChatCleared           Topic = "chat:cleared"

	// Inbound.
	TopicCommandModeSwitch Topic = "command:mode:switch"
	TopicCommandModeShow   Topic = "command:mode:show"
)

// Event is a single notification. Payload types are documented next to the
// publisher of each topic.
type Event struct {
	Seq       uint64
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler receives events for a topic.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64
	seq    atomic.Uint64
}

func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Bus) unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every current subscriber of topic. A panicking
// subscriber is logged and skipped.
func (b *Bus) Publish(topic Topic, payload any) {
	if b == nil {
		return
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()

	evt := Event{
		Seq:       b.seq.Add(1),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, s := range subs {
		deliver(s.handler, evt)
	}
}

// SubscriberCount reports how many handlers listen on topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func deliver(h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event subscriber panicked", "topic", evt.Topic, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(evt)
}
