package checkout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/keylock"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	orderOutcomePlaced   = "placed"
	orderOutcomeRejected = "rejected"
	orderOutcomeFailed   = "failed"
)

type cartStore interface {
	Load(ctx context.Context, sessionID string) (cart.Cart, error)
	Clear(ctx context.Context, sessionID string) (cart.Cart, error)
}

type profileSource interface {
	Current(ctx context.Context, sessionID string) (*commerce.Customer, bool)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req *commerce.OrderRequest) (*commerce.Order, error)
}

// View is the checkout page state: resolver snapshot plus order totals.
type View struct {
	Snapshot
	Summary cart.Summary `json:"summary"`
}

// Confirmation is returned after the upstream accepted the order.
type Confirmation struct {
	OrderID int64  `json:"order_id"`
	Number  string `json:"number"`
	Status  string `json:"status"`
	Total   string `json:"total"`
}

// Service executes the checkout flow for a session.
type Service interface {
	Begin(ctx context.Context, sessionID string) (*View, error)
	View(ctx context.Context, sessionID string) (*View, error)
	ChangeCountry(ctx context.Context, sessionID, country string) (*View, error)
	UpdateForm(ctx context.Context, sessionID string, patch FormPatch) (*View, error)
	PlaceOrder(ctx context.Context, sessionID string) (*Confirmation, error)
}

type service struct {
	registry *Registry
	carts    cartStore
	profiles profileSource
	orders   orderCreator
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics
	submits  *keylock.Mutex
}

// NewService builds the checkout service.
func NewService(
	registry *Registry,
	carts cartStore,
	profiles profileSource,
	orders orderCreator,
	logg *logger.Logger,
	m *metrics.StorefrontMetrics,
) (Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("resolver registry required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		registry: registry,
		carts:    carts,
		profiles: profiles,
		orders:   orders,
		logg:     logg,
		metrics:  m,
		submits:  keylock.New(),
	}, nil
}

func (s *service) Begin(ctx context.Context, sessionID string) (*View, error) {
	current, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(map[string]string{"cart": "must contain at least one item"})
	}
	profile, _ := s.profiles.Current(ctx, sessionID)
	resolver, err := s.registry.Begin(ctx, sessionID, profile)
	if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNoShippingZone) {
		return nil, err
	}
	// A zone failure is part of the returned view; the client renders it.
	return s.view(current, resolver.Snapshot()), nil
}

func (s *service) View(ctx context.Context, sessionID string) (*View, error) {
	resolver, err := s.resolver(sessionID)
	if err != nil {
		return nil, err
	}
	current, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(current, resolver.Snapshot()), nil
}

func (s *service) ChangeCountry(ctx context.Context, sessionID, country string) (*View, error) {
	resolver, err := s.resolver(sessionID)
	if err != nil {
		return nil, err
	}
	if err := resolver.ChangeCountry(ctx, country); err != nil {
		return nil, err
	}
	return s.View(ctx, sessionID)
}

func (s *service) UpdateForm(ctx context.Context, sessionID string, patch FormPatch) (*View, error) {
	resolver, err := s.resolver(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := resolver.UpdateForm(patch); err != nil {
		return nil, err
	}
	return s.View(ctx, sessionID)
}

// PlaceOrder submits the session's cart with its resolved checkout form.
// The cart is cleared and the resolver released only after the upstream
// accepted the order; a failed submission leaves both untouched. A second
// submit for the same session while one is in flight is a CONFLICT.
func (s *service) PlaceOrder(ctx context.Context, sessionID string) (*Confirmation, error) {
	unlock, ok := s.submits.TryLock(sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	defer unlock()

	resolver, err := s.resolver(sessionID)
	if err != nil {
		return nil, err
	}
	current, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := resolver.Snapshot()
	if snap.State == enums.ResolverStateError && snap.Reason != "" {
		s.metrics.IncOrder(orderOutcomeRejected)
		return nil, pkgerrors.New(snap.Reason, "checkout cannot be submitted")
	}
	if snap.State != enums.ResolverStateReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout options are still loading")
	}

	var customerID int64
	if profile, ok := s.profiles.Current(ctx, sessionID); ok && profile != nil {
		customerID = profile.ID
	}

	req, err := Assemble(AssembleInput{
		Cart:            current,
		Form:            snap.Form,
		ShippingMethods: snap.ShippingMethods,
		PaymentGateways: snap.PaymentGateways,
		Countries:       snap.Countries,
		States:          snap.States,
		StateFreeText:   snap.StateFreeText,
		CustomerID:      customerID,
	})
	if err != nil {
		s.metrics.IncOrder(orderOutcomeRejected)
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		s.metrics.IncOrder(orderOutcomeFailed)
		s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "checkout.order.create_failed", err)
		return nil, err
	}
	s.metrics.IncOrder(orderOutcomePlaced)

	if _, err := s.carts.Clear(ctx, sessionID); err != nil {
		// The order exists upstream; the cart clear is best effort.
		s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "checkout.cart.clear_failed", err)
	}
	s.registry.Release(sessionID)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id": sessionID,
		"order_id":   order.ID,
	})
	s.logg.Info(logCtx, "checkout.order.placed")

	number := order.Number
	if number == "" {
		number = strconv.FormatInt(order.ID, 10)
	}
	return &Confirmation{
		OrderID: order.ID,
		Number:  number,
		Status:  order.Status,
		Total:   order.Total,
	}, nil
}

func (s *service) resolver(sessionID string) (*Resolver, error) {
	resolver, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not started")
	}
	return resolver, nil
}

func (s *service) view(current cart.Cart, snap Snapshot) *View {
	return &View{
		Snapshot: snap,
		Summary:  cart.Summarize(current, snap.ShippingCost()),
	}
}
