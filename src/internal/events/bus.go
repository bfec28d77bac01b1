package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
)

// Observer receives published events. Returned errors are logged by the bus
// and never reach the publisher.
type Observer interface {
	Name() string
	Notify(ctx context.Context, event domain.Event) error
}

// Closer is implemented by observers holding resources released on Bus.Close.
type Closer interface {
	Close() error
}

type subscription struct {
	observer Observer
	kinds    map[domain.EventKind]struct{}
}

func (s subscription) wants(kind domain.EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus delivers events synchronously to observers in registration order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	closed bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Register subscribes observer to the given kinds, or to every kind when none
// are given.
func (b *Bus) Register(observer Observer, kinds ...domain.EventKind) error {
	if observer == nil {
		return fmt.Errorf("observer is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}
	for _, s := range b.subs {
		if s.observer.Name() == observer.Name() {
			return fmt.Errorf("observer %q is already registered", observer.Name())
		}
	}

	sub := subscription{observer: observer}
	if len(kinds) > 0 {
		sub.kinds = make(map[domain.EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Publish returns once every interested observer has been called. A failing
// or panicking observer is logged and skipped.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		logger.Warn("event dropped after bus close", logger.Fields{"kind": string(event.Kind), "eventId": event.ID})
		return
	}
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.wants(event.Kind) {
			continue
		}
		deliver(ctx, s.observer, event)
	}
}

func deliver(ctx context.Context, observer Observer, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("observer panicked", fmt.Errorf("%v", r), logger.Fields{
				"observer": observer.Name(),
				"kind":     string(event.Kind),
				"eventId":  event.ID,
			})
		}
	}()

	if err := observer.Notify(ctx, event); err != nil {
		logger.Error("observer failed", err, logger.Fields{
			"observer": observer.Name(),
			"kind":     string(event.Kind),
			"eventId":  event.ID,
		})
	}
}

// Close stops delivery and closes observers implementing Closer, in reverse
// registration order.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var firstErr error
	for i := len(subs) - 1; i >= 0; i-- {
		c, ok := subs[i].observer.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Error("observer close failed", err, logger.Fields{"observer": subs[i].observer.Name()})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
