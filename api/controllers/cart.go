package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CartStore is the subset of cart.Store the HTTP layer drives.
type CartStore interface {
	Load(ctx context.Context, sessionID string) (cart.Cart, error)
	AddItem(ctx context.Context, sessionID string, item cart.NewLine) (cart.Cart, error)
	SetQuantity(ctx context.Context, sessionID string, index, qty int) (cart.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, index int) (cart.Cart, error)
	Clear(ctx context.Context, sessionID string) (cart.Cart, error)
}

type cartLineResponse struct {
	cart.Line
	Index     int             `json:"index"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	Summary   cart.Summary       `json:"summary"`
	Persisted bool               `json:"persisted"`
	Warnings  []string           `json:"warnings,omitempty"`
}

func newCartResponse(c cart.Cart) cartResponse {
	lines := make([]cartLineResponse, 0, len(c.Lines))
	for i, line := range c.Lines {
		lines = append(lines, cartLineResponse{Line: line, Index: i, LineTotal: cart.DisplayLineTotal(line)})
	}
	return cartResponse{Lines: lines, Summary: cart.Summarize(c, nil), Persisted: true}
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartFetch handles GET /api/v1/cart.
func CartFetch(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(store, logg, func(r *http.Request, sessionID string) (cart.Cart, error) {
		return store.Load(r.Context(), sessionID)
	})
}

// CartAddItem handles POST /api/v1/cart/items.
func CartAddItem(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(store, logg, func(r *http.Request, sessionID string) (cart.Cart, error) {
		var body cart.NewLine
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.Cart{}, err
		}
		return store.AddItem(r.Context(), sessionID, body)
	})
}

// CartUpdateItem handles PATCH /api/v1/cart/items/{index}. A quantity
// below one removes the line.
func CartUpdateItem(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(store, logg, func(r *http.Request, sessionID string) (cart.Cart, error) {
		index, err := validators.ParsePathInt(r, "index")
		if err != nil {
			return cart.Cart{}, err
		}
		var body setQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.Cart{}, err
		}
		return store.SetQuantity(r.Context(), sessionID, index, *body.Quantity)
	})
}

// CartRemoveItem handles DELETE /api/v1/cart/items/{index}.
func CartRemoveItem(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(store, logg, func(r *http.Request, sessionID string) (cart.Cart, error) {
		index, err := validators.ParsePathInt(r, "index")
		if err != nil {
			return cart.Cart{}, err
		}
		return store.RemoveItem(r.Context(), sessionID, index)
	})
}

// CartClear handles DELETE /api/v1/cart.
func CartClear(store CartStore, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(store, logg, func(r *http.Request, sessionID string) (cart.Cart, error) {
		return store.Clear(r.Context(), sessionID)
	})
}

// cartHandler renders the cart after op. A failed save still returns the
// updated cart, flagged with a warning, because the store keeps serving it.
func cartHandler(store CartStore, logg *logger.Logger, op func(r *http.Request, sessionID string) (cart.Cart, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}
		sessionID, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := op(r, sessionID)
		var warnings []string
		if err != nil {
			if r.Method == http.MethodGet || !pkgerrors.HasCode(err, pkgerrors.CodePersistence) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			warnings = append(warnings, "cart could not be saved")
		}

		payload := newCartResponse(current)
		payload.Persisted = len(warnings) == 0
		payload.Warnings = warnings
		responses.WriteSuccess(w, payload)
	}
}
