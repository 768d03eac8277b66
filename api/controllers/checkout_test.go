package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type stubCheckout struct {
	view         *checkout.View
	err          error
	confirmation *checkout.Confirmation
	country      string
	patch        checkout.FormPatch
}

func (s *stubCheckout) Begin(context.Context, string) (*checkout.View, error) {
	return s.view, s.err
}

func (s *stubCheckout) View(context.Context, string) (*checkout.View, error) {
	return s.view, s.err
}

func (s *stubCheckout) ChangeCountry(_ context.Context, _ string, country string) (*checkout.View, error) {
	s.country = country
	return s.view, s.err
}

func (s *stubCheckout) UpdateForm(_ context.Context, _ string, patch checkout.FormPatch) (*checkout.View, error) {
	s.patch = patch
	return s.view, s.err
}

func (s *stubCheckout) PlaceOrder(context.Context, string) (*checkout.Confirmation, error) {
	return s.confirmation, s.err
}

func readyView() *checkout.View {
	return &checkout.View{Snapshot: checkout.Snapshot{
		State:     enums.ResolverStateReady,
		Countries: []checkout.Option{{Code: "US", Name: "United States"}},
	}}
}

func TestCheckoutBeginReturnsView(t *testing.T) {
	svc := &stubCheckout{view: readyView()}
	resp := httptest.NewRecorder()
	CheckoutBegin(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/checkout", "", "s-1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			State     string            `json:"state"`
			Countries []checkout.Option `json:"countries"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.State != string(enums.ResolverStateReady) || len(envelope.Data.Countries) != 1 {
		t.Fatalf("unexpected view %+v", envelope.Data)
	}
}

func TestCheckoutChangeCountryValidatesBody(t *testing.T) {
	svc := &stubCheckout{view: readyView()}
	handler := CheckoutChangeCountry(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPut, "/api/v1/checkout/country", `{"country":"USA"}`, "s-1"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPut, "/api/v1/checkout/country", `{"country":"ca"}`, "s-1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.country != "ca" {
		t.Fatalf("country not forwarded: %q", svc.country)
	}
}

func TestCheckoutUpdateFormForwardsPatch(t *testing.T) {
	svc := &stubCheckout{view: readyView()}
	resp := httptest.NewRecorder()
	CheckoutUpdateForm(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPatch, "/api/v1/checkout/form", `{"first_name":"Ada","shipping_method_id":"9"}`, "s-1"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.patch.FirstName == nil || *svc.patch.FirstName != "Ada" || svc.patch.Email != nil {
		t.Fatalf("unexpected patch %+v", svc.patch)
	}
}

func TestCheckoutPlaceOrder(t *testing.T) {
	svc := &stubCheckout{confirmation: &checkout.Confirmation{OrderID: 501, Number: "501", Status: "pending", Total: "30.00"}}
	resp := httptest.NewRecorder()
	CheckoutPlaceOrder(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/checkout/orders", "", "s-1"))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data checkout.Confirmation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.OrderID != 501 {
		t.Fatalf("unexpected confirmation %+v", envelope.Data)
	}
}

func TestCheckoutPlaceOrderNoShippingMethod(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeNoShippingMethod, "no shipping methods")}
	resp := httptest.NewRecorder()
	CheckoutPlaceOrder(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/checkout/orders", "", "s-1"))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCheckoutNilService(t *testing.T) {
	resp := httptest.NewRecorder()
	CheckoutView(nil, nil).ServeHTTP(resp, sessionRequest(http.MethodGet, "/api/v1/checkout", "", "s-1"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
