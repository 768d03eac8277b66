package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/state"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/keylock"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	opAdd         = "add"
	opSetQuantity = "set_quantity"
	opRemove      = "remove"
	opClear       = "clear"
)

// Store is the only writer of a session's cart. Every mutation persists the
// whole cart, then publishes CartChanged. Handlers must not mutate the cart
// of the session they are notified about.
//
// When a write fails the mutated cart is kept in an in-process overlay and
// served by Load until a later write for that session succeeds.
type Store struct {
	state     state.Store
	publisher events.Publisher
	logg      *logger.Logger
	metrics   *metrics.StorefrontMetrics
	locks     *keylock.Mutex

	overlayMu sync.RWMutex
	overlay   map[string]Cart
}

func NewStore(st state.Store, publisher events.Publisher, logg *logger.Logger, m *metrics.StorefrontMetrics) (*Store, error) {
	if st == nil {
		return nil, fmt.Errorf("state store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{
		state:     st,
		publisher: publisher,
		logg:      logg,
		metrics:   m,
		locks:     keylock.New(),
		overlay:   make(map[string]Cart),
	}, nil
}

// Load returns the session's cart. Absent or malformed stored data yields an
// empty cart; only a failing backend read is an error, reported as
// DEPENDENCY_ERROR. PERSISTENCE_FAILURE is reserved for failed writes.
func (s *Store) Load(ctx context.Context, sessionID string) (Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	return c.clone(), nil
}

func (s *Store) AddItem(ctx context.Context, sessionID string, item NewLine) (Cart, error) {
	if item.ProductID <= 0 {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if item.Quantity < 0 {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	qty := item.Quantity
	if qty == 0 {
		qty = 1
	}

	return s.mutate(ctx, sessionID, opAdd, func(c Cart) (Cart, error) {
		for i := range c.Lines {
			if c.Lines[i].sameItem(item.ProductID, item.Variations) {
				c.Lines[i].Quantity += qty
				return c, nil
			}
		}
		c.Lines = append(c.Lines, Line{
			ProductID:  item.ProductID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Image:      item.Image,
			Quantity:   qty,
			Variations: cloneVariations(item.Variations),
		})
		return c, nil
	})
}

// SetQuantity overwrites a line's quantity; qty below 1 removes the line.
func (s *Store) SetQuantity(ctx context.Context, sessionID string, index, qty int) (Cart, error) {
	op := opSetQuantity
	if qty < 1 {
		op = opRemove
	}
	return s.mutate(ctx, sessionID, op, func(c Cart) (Cart, error) {
		if err := checkIndex(c, index); err != nil {
			return c, err
		}
		if qty < 1 {
			return removeAt(c, index), nil
		}
		c.Lines[index].Quantity = qty
		return c, nil
	})
}

func (s *Store) RemoveItem(ctx context.Context, sessionID string, index int) (Cart, error) {
	return s.mutate(ctx, sessionID, opRemove, func(c Cart) (Cart, error) {
		if err := checkIndex(c, index); err != nil {
			return c, err
		}
		return removeAt(c, index), nil
	})
}

func (s *Store) Clear(ctx context.Context, sessionID string) (Cart, error) {
	return s.mutate(ctx, sessionID, opClear, func(Cart) (Cart, error) {
		return Cart{}, nil
	})
}

func (s *Store) mutate(ctx context.Context, sessionID, op string, fn func(Cart) (Cart, error)) (Cart, error) {
	if sessionID == "" {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "session is required")
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	next, err := fn(current.clone())
	if err != nil {
		return current.clone(), err
	}

	persistErr := s.persist(ctx, sessionID, next)
	s.metrics.IncCartMutation(op, persistErr == nil)

	s.publisher.Publish(ctx, events.Event{
		Kind:      enums.EventKindCartChanged,
		SessionID: sessionID,
		CartEmpty: next.IsEmpty(),
	})
	return next.clone(), persistErr
}

func (s *Store) load(ctx context.Context, sessionID string) (Cart, error) {
	s.overlayMu.RLock()
	pending, ok := s.overlay[sessionID]
	s.overlayMu.RUnlock()
	if ok {
		return pending, nil
	}

	raw, found, err := s.state.Get(ctx, sessionID, enums.StateKeyCart)
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if !found || len(raw) == 0 {
		return Cart{}, nil
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.load.malformed")
		return Cart{}, nil
	}
	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity < 1 {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) != len(lines) {
		s.logg.Warn(s.logg.WithField(ctx, "dropped", len(lines)-len(kept)), "cart.load.invalid_lines")
	}
	if len(kept) == 0 {
		return Cart{}, nil
	}
	return Cart{Lines: kept}, nil
}

func (s *Store) persist(ctx context.Context, sessionID string, c Cart) error {
	var err error
	if c.IsEmpty() {
		err = s.state.Delete(ctx, sessionID, enums.StateKeyCart)
	} else {
		var payload []byte
		payload, err = json.Marshal(c.Lines)
		if err == nil {
			err = s.state.Set(ctx, sessionID, enums.StateKeyCart, payload)
		}
	}

	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()
	if err != nil {
		s.overlay[sessionID] = c.clone()
		s.logg.Error(ctx, "cart.persist.failed", err)
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save cart")
	}
	delete(s.overlay, sessionID)
	return nil
}

func checkIndex(c Cart, index int) error {
	if index < 0 || index >= len(c.Lines) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart line index out of range").
			WithDetails(map[string]any{"index": index, "lines": len(c.Lines)})
	}
	return nil
}

func removeAt(c Cart, index int) Cart {
	lines := make([]Line, 0, len(c.Lines)-1)
	lines = append(lines, c.Lines[:index]...)
	lines = append(lines, c.Lines[index+1:]...)
	if len(lines) == 0 {
		return Cart{}
	}
	return Cart{Lines: lines}
}
