package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// Subscriber is the event bus surface the registry listens on.
type Subscriber interface {
	Subscribe(kind enums.EventKind, handler events.Handler) func()
}

type registryEntry struct {
	resolver *Resolver
	touched  time.Time
}

// Registry holds one resolver per session. Resolvers live in this process
// only; EvictIdle drops the ones no request has touched for a while.
type Registry struct {
	api     CommerceAPI
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics
	now     func() time.Time

	mu        sync.Mutex
	resolvers map[string]*registryEntry
	unsub     []func()
}

func NewRegistry(api CommerceAPI, bus Subscriber, logg *logger.Logger, m *metrics.StorefrontMetrics) *Registry {
	if logg == nil {
		logg = logger.Nop()
	}
	r := &Registry{
		api:       api,
		logg:      logg,
		metrics:   m,
		now:       time.Now,
		resolvers: make(map[string]*registryEntry),
	}
	if bus != nil {
		r.unsub = append(r.unsub,
			bus.Subscribe(enums.EventKindCartChanged, r.onCartChanged),
			bus.Subscribe(enums.EventKindAuthChanged, r.onAuthChanged),
		)
	}
	return r
}

// Begin replaces the session's resolver with a fresh one and runs Enter.
// The resolver is registered even when Enter fails so its Error state can
// be read back.
func (r *Registry) Begin(ctx context.Context, sessionID string, profile *commerce.Customer) (*Resolver, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	resolver := NewResolver(r.api, r.logg, r.metrics)
	r.mu.Lock()
	r.resolvers[sessionID] = &registryEntry{resolver: resolver, touched: r.now()}
	r.mu.Unlock()

	return resolver, resolver.Enter(ctx, profile)
}

// Get returns the session's resolver and marks it as used.
func (r *Registry) Get(sessionID string) (*Resolver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.resolvers[sessionID]
	if !ok {
		return nil, false
	}
	entry.touched = r.now()
	return entry.resolver, true
}

func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	delete(r.resolvers, sessionID)
	r.mu.Unlock()
}

// EvictIdle releases every resolver untouched for longer than maxIdle and
// returns how many were dropped.
func (r *Registry) EvictIdle(ctx context.Context, maxIdle time.Duration) int64 {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted int64
	for sessionID, entry := range r.resolvers {
		if entry.touched.Before(cutoff) {
			delete(r.resolvers, sessionID)
			evicted++
		}
	}
	remaining := len(r.resolvers)
	r.mu.Unlock()

	if evicted > 0 {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"evicted":   evicted,
			"remaining": remaining,
		}), "checkout.resolver.evicted_idle")
	}
	return evicted
}

// Close detaches the registry from the event bus.
func (r *Registry) Close() {
	for _, fn := range r.unsub {
		fn()
	}
	r.unsub = nil
}

func (r *Registry) onCartChanged(ctx context.Context, evt events.Event) {
	if !evt.CartEmpty {
		return
	}
	if _, ok := r.Get(evt.SessionID); ok {
		r.Release(evt.SessionID)
		r.logg.Info(r.logg.WithSessionID(ctx, evt.SessionID), "checkout.resolver.released_empty_cart")
	}
}

func (r *Registry) onAuthChanged(ctx context.Context, evt events.Event) {
	if _, ok := r.Get(evt.SessionID); ok {
		r.Release(evt.SessionID)
		r.logg.Info(r.logg.WithSessionID(ctx, evt.SessionID), "checkout.resolver.released_auth_changed")
	}
}
