package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront/internal/customers"
	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type stubCustomers struct {
	current   *commerce.Customer
	err       error
	loggedOut bool
	register  customers.RegisterInput
}

func (s *stubCustomers) Current(context.Context, string) (*commerce.Customer, bool) {
	return s.current, s.current != nil
}

func (s *stubCustomers) Register(_ context.Context, _ string, input customers.RegisterInput) (*commerce.Customer, error) {
	s.register = input
	if s.err != nil {
		return nil, s.err
	}
	return &commerce.Customer{ID: 44, Email: input.Email}, nil
}

func (s *stubCustomers) Login(_ context.Context, _ string, input customers.LoginInput) (*commerce.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &commerce.Customer{ID: 44, Email: input.Email}, nil
}

func (s *stubCustomers) Logout(context.Context, string) error {
	s.loggedOut = true
	return s.err
}

func (s *stubCustomers) UpdateProfile(_ context.Context, _ string, input customers.ProfileInput) (*commerce.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &commerce.Customer{ID: 44, Email: input.Email, FirstName: input.FirstName}, nil
}

func (s *stubCustomers) Orders(context.Context, string) ([]commerce.Order, error) {
	if s.current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return []commerce.Order{{ID: 1}}, nil
}

func TestAuthRegister(t *testing.T) {
	svc := &stubCustomers{}
	body := `{"email":"ada@example.com","first_name":"Ada","last_name":"L","password":"secret1","confirm_password":"secret1"}`
	resp := httptest.NewRecorder()
	AuthRegister(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/auth/register", body, "s-1"))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.register.Email != "ada@example.com" {
		t.Fatalf("input not forwarded")
	}
}

func TestAuthRegisterPasswordMismatch(t *testing.T) {
	body := `{"email":"ada@example.com","first_name":"Ada","last_name":"L","password":"secret1","confirm_password":"secret2"}`
	resp := httptest.NewRecorder()
	AuthRegister(&stubCustomers{}, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/auth/register", body, "s-1"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginForbiddenWhenDisabled(t *testing.T) {
	svc := &stubCustomers{err: pkgerrors.New(pkgerrors.CodeForbidden, "login disabled")}
	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"x"}`, "s-1"))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	svc := &stubCustomers{}
	resp := httptest.NewRecorder()
	AuthLogout(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/auth/logout", "", "s-1"))

	if resp.Code != http.StatusNoContent || !svc.loggedOut {
		t.Fatalf("expected logout, got %d", resp.Code)
	}
}

func TestAccountFetchRequiresLogin(t *testing.T) {
	resp := httptest.NewRecorder()
	AccountFetch(&stubCustomers{}, nil).ServeHTTP(resp, sessionRequest(http.MethodGet, "/api/v1/account", "", "s-1"))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	AccountFetch(&stubCustomers{current: &commerce.Customer{ID: 3}}, nil).ServeHTTP(resp, sessionRequest(http.MethodGet, "/api/v1/account", "", "s-1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAccountUpdateAndOrders(t *testing.T) {
	svc := &stubCustomers{current: &commerce.Customer{ID: 3}}
	resp := httptest.NewRecorder()
	AccountUpdate(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodPut, "/api/v1/account", `{"first_name":"A","last_name":"B","email":"a@example.com","city":"Austin"}`, "s-1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	AccountOrders(svc, nil).ServeHTTP(resp, sessionRequest(http.MethodGet, "/api/v1/account/orders", "", "s-1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, Dependency{Name: "redis", Pinger: stubPinger{}}, Dependency{Name: "db"}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("refused")}}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK || resp.Header().Get("X-Storefront-Env") != "prod" {
		t.Fatalf("unexpected live response %d", resp.Code)
	}
}
