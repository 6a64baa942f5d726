package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"
)

func receive[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
	var zero T
	return zero
}

func TestBasicPubSub(t *testing.T) {
	ps := New[string](0)
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ps.Publish("job-1", "completed")

	if msg := receive(t, sub); msg != "completed" {
		t.Errorf("Expected 'completed', got %q", msg)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	ps := New[int](0)
	defer ps.Shutdown()

	const numSubscribers = 5
	subs := make([]*Subscription[int], numSubscribers)
	for i := range subs {
		sub, err := ps.Subscribe(context.Background(), "broadcast")
		if err != nil {
			t.Fatalf("Failed to subscribe %d: %v", i, err)
		}
		defer sub.Unsubscribe()
		subs[i] = sub
	}

	if got := ps.Subscribers(); got != numSubscribers {
		t.Errorf("Expected %d subscribers, got %d", numSubscribers, got)
	}

	ps.Publish("broadcast", 42)

	for i, sub := range subs {
		if msg := receive(t, sub); msg != 42 {
			t.Errorf("Subscriber %d: expected 42, got %d", i, msg)
		}
	}
}

func TestTopicIsolationAndWildcard(t *testing.T) {
	ps := New[string](0)
	defer ps.Shutdown()

	ctx := context.Background()
	a, _ := ps.Subscribe(ctx, "a")
	b, _ := ps.Subscribe(ctx, "b")
	all, _ := ps.Subscribe(ctx, AllTopics)

	ps.Publish("a", "for-a")

	if msg := receive(t, a); msg != "for-a" {
		t.Errorf("topic a got %q", msg)
	}
	if msg := receive(t, all); msg != "for-a" {
		t.Errorf("wildcard got %q", msg)
	}
	select {
	case msg := <-b.Channel():
		t.Errorf("topic b should not receive, got %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestContextCancellationUnsubscribes(t *testing.T) {
	ps := New[string](0)
	defer ps.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := ps.Subscribe(ctx, "topic")
	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed after cancel")
	}

	if got := ps.Subscribers(); got != 0 {
		t.Errorf("Expected 0 subscribers, got %d", got)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	ps := New[int](2)
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), "t")
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		ps.Publish("t", i)
	}

	if got := ps.Dropped(); got != 3 {
		t.Errorf("Expected 3 dropped, got %d", got)
	}
	if msg := receive(t, sub); msg != 0 {
		t.Errorf("Expected first buffered message 0, got %d", msg)
	}
}

func TestShutdown(t *testing.T) {
	ps := New[string](0)

	sub, _ := ps.Subscribe(context.Background(), "t")
	ps.Shutdown()
	ps.Shutdown()

	if _, ok := <-sub.Channel(); ok {
		t.Error("expected channel closed by shutdown")
	}
	if _, err := ps.Subscribe(context.Background(), "t"); err != ErrShutdown {
		t.Errorf("Expected ErrShutdown, got %v", err)
	}

	// Must not panic
	ps.Publish("t", "ignored")
	sub.Unsubscribe()
}

func TestConcurrentPublishUnsubscribe(t *testing.T) {
	ps := New[int](1)
	defer ps.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub, _ := ps.Subscribe(context.Background(), "t")
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ps.Publish("t", j)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
}
