// Package events carries the storefront's in-process notifications.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type Event struct {
	Kind      enums.EventKind
	SessionID string
	// CartEmpty is set on cart events when the cart has no lines after the mutation.
	CartEmpty bool
}

type Handler func(ctx context.Context, evt Event)

// Publisher is the narrow surface domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous typed publish/subscribe hub. Handlers run in
// subscription order on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[enums.EventKind][]subscription
	logg   *logger.Logger
}

func NewBus(logg *logger.Logger) *Bus {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Bus{
		subs: make(map[enums.EventKind][]subscription),
		logg: logg,
	}
}

// Subscribe registers handler for kind and returns a function removing it.
func (b *Bus) Subscribe(kind enums.EventKind, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			current := b.subs[kind]
			for i, sub := range current {
				if sub.id == id {
					b.subs[kind] = append(current[:i:i], current[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[evt.Kind]))
	for _, sub := range b.subs[evt.Kind] {
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, handler, evt)
	}
}

func (b *Bus) dispatch(ctx context.Context, handler Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			ctx = b.logg.WithFields(ctx, map[string]any{
				"event_kind": evt.Kind.String(),
				"session_id": evt.SessionID,
			})
			b.logg.Error(ctx, "events.handler.panic", fmt.Errorf("panic: %v", r))
		}
	}()
	handler(ctx, evt)
}
