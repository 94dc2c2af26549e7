package bus

import (
	"testing"
	"time"
)

func TestPublishDelivery(t *testing.T) {
	b := New()
	sub, cancel := b.Subscribe("s1", 4)
	defer cancel()

	b.Publish(Event{Type: EventChunkTranscribed, SessionID: "s1"})

	select {
	case ev := <-sub.C:
		if ev.Type != EventChunkTranscribed {
			t.Errorf("expected chunk_transcribed, got %s", ev.Type)
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSessionIsolation(t *testing.T) {
	b := New()
	sub1, cancel1 := b.Subscribe("s1", 4)
	defer cancel1()
	sub2, cancel2 := b.Subscribe("s2", 4)
	defer cancel2()

	b.Publish(Event{Type: EventNotesUpdated, SessionID: "s1"})

	select {
	case <-sub1.C:
	case <-time.After(time.Second):
		t.Fatal("s1 subscriber did not receive event")
	}

	select {
	case ev := <-sub2.C:
		t.Fatalf("s2 subscriber received event for s1: %v", ev)
	default:
	}
}

func TestGlobalSubscriber(t *testing.T) {
	b := New()
	sub, cancel := b.Subscribe("", 4)
	defer cancel()

	b.Publish(Event{Type: EventRecordingStatus, SessionID: "s1"})
	b.Publish(Event{Type: EventRecordingStatus, SessionID: "s2"})

	for i := 0; i < 2; i++ {
		select {
		case <-sub.C:
		case <-time.After(time.Second):
			t.Fatalf("global subscriber missed event %d", i)
		}
	}
}

func TestSlowSubscriberDropsNeverBlocks(t *testing.T) {
	b := New()
	sub, cancel := b.Subscribe("s1", 2)
	defer cancel()

	// Publish more than the buffer can hold without consuming.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: EventChunkFinalized, SessionID: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	if got := sub.Dropped(); got != 8 {
		t.Errorf("expected 8 dropped events, got %d", got)
	}
	if len(sub.C) != 2 {
		t.Errorf("expected 2 buffered events, got %d", len(sub.C))
	}
}

func TestCancelIdempotent(t *testing.T) {
	b := New()
	_, cancel := b.Subscribe("s1", 1)
	cancel()
	cancel() // second cancel must not panic or double-close

	if n := b.SubscriberCount("s1"); n != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", n)
	}

	// Publishing to a session with no subscribers is a no-op.
	b.Publish(Event{Type: EventChunkFailed, SessionID: "s1"})
}
