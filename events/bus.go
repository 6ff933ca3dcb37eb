package events

import (
	"log/slog"
	"sync"
)

// Handler receives events for one subscription.
type Handler func(Event)

// subscriberBuffer is the per-subscription queue depth. A subscriber
// that falls this far behind starts dropping events.
const subscriberBuffer = 64

type subscription struct {
	subject Subject
	ch      chan Event
	done    chan struct{}
}

// Bus is an in-process publish/subscribe channel. Publishing never
// blocks on a slow subscriber: each subscription drains its own buffered
// queue on its own goroutine, preserving per-subscriber ordering.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Subject][]*subscription
	closed bool
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[Subject][]*subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for one subject and returns an
// unsubscribe function. The handler runs on a dedicated goroutine.
func (b *Bus) Subscribe(subject Subject, fn Handler) func() {
	sub := &subscription{
		subject: subject,
		ch:      make(chan Event, subscriberBuffer),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.done)
		return func() {}
	}
	b.subs[subject] = append(b.subs[subject], sub)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case ev := <-sub.ch:
				fn(ev)
			case <-sub.done:
				// Drain what was queued before the unsubscribe.
				for {
					select {
					case ev := <-sub.ch:
						fn(ev)
					default:
						return
					}
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(sub)
			close(sub.done)
		})
	}
}

// Publish delivers an event to every subscriber of its subject.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.EventSubject()]
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				slog.String("subject", string(ev.EventSubject())))
		}
	}
}

// Close stops delivery and releases all subscriber goroutines.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.subs = make(map[Subject][]*subscription)
	b.mu.Unlock()

	for _, sub := range all {
		close(sub.done)
	}
}

func (b *Bus) remove(target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[target.subject]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.subject] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
