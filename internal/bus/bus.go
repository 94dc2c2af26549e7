package bus

import (
	"sync"
	"time"
)

// EventType identifies the kind of state transition an Event carries
type EventType string

const (
	EventChunkFinalized   EventType = "chunk_finalized"
	EventChunkTranscribed EventType = "chunk_transcribed"
	EventChunkFailed      EventType = "chunk_failed"
	EventNotesUpdated     EventType = "notes_updated"
	EventSynthesisFailed  EventType = "synthesis_failed"
	EventMergeCompleted   EventType = "merge_completed"
	EventRecordingStatus  EventType = "recording_status"
	EventFallingBehind    EventType = "falling_behind"
)

// Event is a single state transition broadcast to subscribers
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Subscription is a live feed of events for one consumer. Each subscription
// owns a bounded buffer; when the buffer is full new events for that
// subscriber are dropped rather than stalling the publisher.
type Subscription struct {
	C chan Event

	id      uint64
	dropped uint64
	mu      sync.Mutex
}

// Dropped returns how many events were discarded because this subscriber
// did not keep up
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Bus is an in-process publish/subscribe channel for session events.
// Publishing never blocks: delivery is best-effort per subscriber.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription // session ID -> subscribers
	global map[uint64]*Subscription            // subscribers to all sessions
}

// New creates an empty event bus
func New() *Bus {
	return &Bus{
		subs:   make(map[string]map[uint64]*Subscription),
		global: make(map[uint64]*Subscription),
	}
}

// Subscribe registers a consumer for one session's events. bufferSize caps
// the per-subscriber backlog. The returned cancel function detaches the
// subscription and closes its channel.
func (b *Bus) Subscribe(sessionID string, bufferSize int) (*Subscription, func()) {
	if bufferSize < 1 {
		bufferSize = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		C:  make(chan Event, bufferSize),
		id: b.nextID,
	}

	if sessionID == "" {
		b.global[sub.id] = sub
	} else {
		if b.subs[sessionID] == nil {
			b.subs[sessionID] = make(map[uint64]*Subscription)
		}
		b.subs[sessionID][sub.id] = sub
	}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sessionID == "" {
			if _, ok := b.global[sub.id]; ok {
				delete(b.global, sub.id)
				close(sub.C)
			}
			return
		}

		if m, ok := b.subs[sessionID]; ok {
			if _, ok := m[sub.id]; ok {
				delete(m, sub.id)
				close(sub.C)
			}
			if len(m) == 0 {
				delete(b.subs, sessionID)
			}
		}
	}

	return sub, cancel
}

// Publish delivers an event to every subscriber of the event's session and
// to global subscribers. Never blocks; slow subscribers lose events.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[event.SessionID] {
		deliver(sub, event)
	}
	for _, sub := range b.global {
		deliver(sub, event)
	}
}

func deliver(sub *Subscription, event Event) {
	select {
	case sub.C <- event:
	default:
		sub.mu.Lock()
		sub.dropped++
		sub.mu.Unlock()
	}
}

// SubscriberCount returns the number of subscribers attached to a session
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID]) + len(b.global)
}
