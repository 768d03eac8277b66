package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type changeCountryRequest struct {
	Country string `json:"country" validate:"required,len=2"`
}

// CheckoutBegin handles POST /api/v1/checkout and runs the zone, method,
// country and gateway lookups for the session.
func CheckoutBegin(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := checkoutSession(w, r, svc, logg)
		if !ok {
			return
		}
		view, err := svc.Begin(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CheckoutView(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := checkoutSession(w, r, svc, logg)
		if !ok {
			return
		}
		view, err := svc.View(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckoutChangeCountry handles PUT /api/v1/checkout/country.
func CheckoutChangeCountry(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := checkoutSession(w, r, svc, logg)
		if !ok {
			return
		}
		var body changeCountryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.ChangeCountry(r.Context(), sessionID, body.Country)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckoutUpdateForm handles PATCH /api/v1/checkout/form.
func CheckoutUpdateForm(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := checkoutSession(w, r, svc, logg)
		if !ok {
			return
		}
		var patch checkout.FormPatch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateForm(r.Context(), sessionID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckoutPlaceOrder handles POST /api/v1/checkout/orders.
func CheckoutPlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := checkoutSession(w, r, svc, logg)
		if !ok {
			return
		}
		confirmation, err := svc.PlaceOrder(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}

func checkoutSession(w http.ResponseWriter, r *http.Request, svc checkout.Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
		return "", false
	}
	sessionID, err := sessionFrom(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", false
	}
	return sessionID, true
}
