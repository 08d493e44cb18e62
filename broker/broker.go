package broker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoSubscribers is returned by Publish when nobody is subscribed.
var ErrNoSubscribers = errors.New("no subscribers")

// ErrSubscriberFull is returned by Publish when a subscriber channel buffer is full and the
// message was dropped for it.
var ErrSubscriberFull = errors.New("subscriber full")

// Broker implements a simple fan-out message broker.
//
// Messages are delivered to each subscriber in publish order. Publish never blocks: when a
// subscriber buffer is full, the message is dropped for that subscriber only.
type Broker[T any] struct {
	mu          sync.Mutex
	subscribers map[string]chan T
	closed      bool
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[string]chan T),
	}
}

// Subscribe registers a new subscriber with the given name and channel buffer size.
// It returns a receive-only channel that will receive published messages. Subscribing with a name
// already in use replaces (and closes) the previous channel. Subscribing to a closed broker returns
// a closed channel.
func (b *Broker[T]) Subscribe(name string, size int) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, size)

	if b.closed {
		close(ch)
		return ch
	}

	if prev, ok := b.subscribers[name]; ok {
		close(prev)
	}
	b.subscribers[name] = ch

	return ch
}

// Unsubscribe removes the named subscriber and closes its channel. It is a no-op for unknown names.
func (b *Broker[T]) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[name]
	if !ok {
		return
	}
	close(ch)
	delete(b.subscribers, name)
}

// Publish sends a message to all registered subscribers.
func (b *Broker[T]) Publish(t T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subscribers) == 0 {
		return ErrNoSubscribers
	}

	var full []string
	for name, ch := range b.subscribers {
		select {
		case ch <- t:
		default:
			full = append(full, name)
		}
	}

	if len(full) > 0 {
		sort.Strings(full)
		return fmt.Errorf("%w: %v", ErrSubscriberFull, full)
	}

	return nil
}

// Subscribers returns the number of registered subscribers.
func (b *Broker[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, signaling that no more messages will be published.
// Subsequent subscriptions receive closed channels.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}

	b.subscribers = make(map[string]chan T)
	b.closed = true
}
