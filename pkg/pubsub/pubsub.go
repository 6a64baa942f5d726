package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// AllTopics subscribes to every published message regardless of topic
const AllTopics = "*"

// DefaultBuffer is the per-subscription channel capacity
const DefaultBuffer = 64

// ErrShutdown is returned when subscribing to a PubSub that has been shut down
var ErrShutdown = errors.New("pubsub is shut down")

// PubSub fans messages out to topic subscribers without blocking publishers.
// Slow subscribers lose messages once their buffer is full; Dropped counts them.
type PubSub[T any] struct {
	subscribers map[string]map[*Subscription[T]]struct{}
	mu          sync.RWMutex
	buffer      int
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	dropped     atomic.Uint64
}

// Subscription is a live registration on one topic
type Subscription[T any] struct {
	topic     string
	channel   chan T
	ps        *PubSub[T]
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a PubSub. A buffer <= 0 uses DefaultBuffer.
func New[T any](buffer int) *PubSub[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &PubSub[T]{
		subscribers: make(map[string]map[*Subscription[T]]struct{}),
		buffer:      buffer,
		shutdown:    make(chan struct{}),
	}
}

// Subscribe registers on topic until ctx is done or Unsubscribe is called
func (ps *PubSub[T]) Subscribe(ctx context.Context, topic string) (*Subscription[T], error) {
	ps.shutdownMu.Lock()
	defer ps.shutdownMu.Unlock()
	if ps.isShutdown {
		return nil, ErrShutdown
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		topic:   topic,
		channel: make(chan T, ps.buffer),
		ps:      ps,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription[T]]struct{})
	}
	ps.subscribers[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			// Shutdown closes the channel itself
			cancel()
		}
	}()

	return sub, nil
}

// Publish delivers message to subscribers of topic and of AllTopics
func (ps *PubSub[T]) Publish(topic string, message T) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.shutdownMu.Unlock()

	// Snapshot under lock; sends happen outside it
	ps.mu.RLock()
	subs := make([]*Subscription[T], 0, len(ps.subscribers[topic])+len(ps.subscribers[AllTopics]))
	for sub := range ps.subscribers[topic] {
		subs = append(subs, sub)
	}
	if topic != AllTopics {
		for sub := range ps.subscribers[AllTopics] {
			subs = append(subs, sub)
		}
	}
	ps.mu.RUnlock()

	for _, sub := range subs {
		sub.send(message, &ps.dropped)
	}
}

// Subscribers returns the number of live subscriptions across all topics
func (ps *PubSub[T]) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	n := 0
	for _, subs := range ps.subscribers {
		n += len(subs)
	}
	return n
}

// Dropped returns how many deliveries were skipped because a buffer was full
func (ps *PubSub[T]) Dropped() uint64 {
	return ps.dropped.Load()
}

// Shutdown closes all subscriptions. Later publishes are ignored.
func (ps *PubSub[T]) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for topic, subs := range ps.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Channel returns the subscription's message channel. It is closed on unsubscribe or shutdown.
func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

// Unsubscribe removes the subscription
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()

	if subs := s.ps.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}

	s.close()
}

// send holds the read lock; channels are only closed under the write lock
func (s *Subscription[T]) send(message T, dropped *atomic.Uint64) {
	s.ps.mu.RLock()
	defer s.ps.mu.RUnlock()

	if _, live := s.ps.subscribers[s.topic][s]; !live {
		return
	}
	select {
	case s.channel <- message:
	default:
		dropped.Add(1)
	}
}

func (s *Subscription[T]) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
