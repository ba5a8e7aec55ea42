package store

import (
	"fmt"
	"testing"
	"time"
)

func TestEventQueueOrder(t *testing.T) {
	w := NewWatchers()
	q := NewEventQueue(w)
	defer q.Close()

	got := make(chan string, 100)
	w.Add(func(e ChangeEvent) {
		got <- e.Keys[0]
	})

	for i := 0; i < 100; i++ {
		if !q.Push(ChangeEvent{Keys: []string{fmt.Sprintf("key-%d", i)}}) {
			t.Fatalf("Push(%d) was rejected", i)
		}
	}

	for i := 0; i < 100; i++ {
		select {
		case key := <-got:
			if want := fmt.Sprintf("key-%d", i); key != want {
				t.Fatalf("event %d: expected %s, got %s", i, want, key)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestEventQueuePushDoesNotWaitForHandler(t *testing.T) {
	w := NewWatchers()
	q := NewEventQueue(w)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	w.Add(func(ChangeEvent) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})

	q.Push(ChangeEvent{Keys: []string{"a"}})
	<-entered

	done := make(chan struct{})
	go func() {
		q.Push(ChangeEvent{Keys: []string{"b"}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked on a running handler")
	}

	close(release)
	q.Close()
}

func TestEventQueueRejects(t *testing.T) {
	q := NewEventQueue(NewWatchers())

	if q.Push(ChangeEvent{}) {
		t.Error("expected an event without keys to be dropped")
	}

	q.Close()
	q.Close() // idempotent

	if q.Push(ChangeEvent{Keys: []string{"k"}}) {
		t.Error("expected Push on a closed queue to be rejected")
	}
}
