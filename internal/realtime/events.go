package realtime

import (
	"encoding/json"
	"sync"
)

type EventName string

// Inbound events.
const (
	EventNewMessage          EventName = "new_message"
	EventNotification        EventName = "notification"
	EventAchievementUnlocked EventName = "achievement_unlocked"
	EventChallengeUpdate     EventName = "challenge_update"
	EventTyping              EventName = "typing"
	EventMessageStatus       EventName = "message_status"
)

// Outbound events.
const (
	EventJoinConversation  EventName = "join_conversation"
	EventLeaveConversation EventName = "leave_conversation"
)

// Envelope is the wire frame: {"event": "...", "data": {...}}.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Handler func(Envelope)

// Subscription identifies one registered handler. Zero value is inert.
type Subscription struct {
	event EventName
	id    uint64
}

// Bus fans events out to any number of subscribers per event name.
// Subscribing never displaces another handler; removal is only by the
// handle returned from Subscribe.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[EventName]map[uint64]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[EventName]map[uint64]Handler)}
}

func (b *Bus) Subscribe(event EventName, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	if b.subs[event] == nil {
		b.subs[event] = make(map[uint64]Handler)
	}
	b.subs[event][b.next] = h
	return Subscription{event: event, id: b.next}
}

func (b *Bus) Unsubscribe(s Subscription) {
	if s.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[s.event], s.id)
}

// Publish delivers ev to every subscriber of its event name, synchronously
// on the caller's goroutine. The realtime read pump is the only producer in
// normal operation, which keeps store mutations serialized.
func (b *Bus) Publish(ev Envelope) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[ev.Event]))
	for _, h := range b.subs[ev.Event] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
