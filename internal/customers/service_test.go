package customers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/state"
	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const session = "session-1"

type stubAPI struct {
	created   *commerce.CustomerCreate
	createErr error
	matches   []commerce.Customer
	updated   *commerce.CustomerUpdate
	updateID  int64
	orders    []commerce.Order
	ordersErr error
}

func (s *stubAPI) CreateCustomer(_ context.Context, req commerce.CustomerCreate) (*commerce.Customer, error) {
	s.created = &req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &commerce.Customer{ID: 7, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, Billing: *req.Billing}, nil
}

func (s *stubAPI) FindCustomersByEmail(context.Context, string) ([]commerce.Customer, error) {
	return s.matches, nil
}

func (s *stubAPI) UpdateCustomer(_ context.Context, id int64, req commerce.CustomerUpdate) (*commerce.Customer, error) {
	s.updateID = id
	s.updated = &req
	return &commerce.Customer{ID: id, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, Billing: *req.Billing}, nil
}

func (s *stubAPI) CustomerOrders(context.Context, int64) ([]commerce.Order, error) {
	return s.orders, s.ordersErr
}

type fixture struct {
	api   *stubAPI
	state *state.MemoryStore
	auth  int
	svc   Service
}

func newFixture(t *testing.T, cfg config.AuthConfig) *fixture {
	t.Helper()
	f := &fixture{api: &stubAPI{}, state: state.NewMemoryStore(time.Hour)}
	bus := events.NewBus(nil)
	bus.Subscribe(enums.EventKindAuthChanged, func(context.Context, events.Event) { f.auth++ })
	svc, err := NewService(f.api, f.state, bus, cfg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) seedProfile(t *testing.T, customer commerce.Customer) {
	t.Helper()
	raw, err := json.Marshal(customer)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := f.state.Set(context.Background(), session, enums.StateKeyCustomer, raw); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestRegisterStoresProfile(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	customer, err := f.svc.Register(context.Background(), session, RegisterInput{
		Email:           " Ada@Example.com ",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Username:        "ada",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if customer.ID != 7 || f.api.created.Email != "ada@example.com" {
		t.Fatalf("unexpected customer %+v", customer)
	}
	if f.api.created.Billing == nil || f.api.created.Billing.FirstName != "Ada" {
		t.Fatalf("expected billing names copied")
	}

	current, ok := f.svc.Current(context.Background(), session)
	if !ok || current.ID != 7 {
		t.Fatalf("expected stored profile, got %+v", current)
	}
	raw, found, _ := f.state.Get(context.Background(), session, enums.StateKeyIsLoggedIn)
	if !found || string(raw) != "true" {
		t.Fatalf("expected isLoggedIn=true, got %q", raw)
	}
	if f.auth != 1 {
		t.Fatalf("expected one auth event, got %d", f.auth)
	}
}

func TestRegisterValidates(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	_, err := f.svc.Register(context.Background(), session, RegisterInput{
		Email:           "ada@example.com",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Password:        "short",
		ConfirmPassword: "other",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := typed.Details().(map[string]string)
	if _, ok := details["password"]; !ok {
		t.Fatalf("expected password detail, got %v", details)
	}
	if _, ok := details["confirm_password"]; !ok {
		t.Fatalf("expected confirm_password detail, got %v", details)
	}
	if f.api.created != nil {
		t.Fatalf("upstream called on invalid input")
	}
}

func TestRegisterUpstreamFailure(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})
	f.api.createErr = pkgerrors.New(pkgerrors.CodeDependency, "email exists")

	_, err := f.svc.Register(context.Background(), session, RegisterInput{
		Email: "ada@example.com", FirstName: "Ada", LastName: "L", Password: "secret1", ConfirmPassword: "secret1",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, ok := f.svc.Current(context.Background(), session); ok {
		t.Fatalf("profile stored after failure")
	}
}

func TestLoginDisabledByDefault(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})
	f.api.matches = []commerce.Customer{{ID: 3, Email: "ada@example.com"}}

	_, err := f.svc.Login(context.Background(), session, LoginInput{Email: "ada@example.com", Password: "x"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestLoginUnverified(t *testing.T) {
	f := newFixture(t, config.AuthConfig{AllowUnverifiedLogin: true})

	if _, err := f.svc.Login(context.Background(), session, LoginInput{Email: "nobody@example.com", Password: "x"}); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.api.matches = []commerce.Customer{{ID: 3, Email: "ada@example.com"}, {ID: 4, Email: "ada@example.com"}}
	customer, err := f.svc.Login(context.Background(), session, LoginInput{Email: "ada@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if customer.ID != 3 {
		t.Fatalf("expected first match, got %d", customer.ID)
	}
	if current, ok := f.svc.Current(context.Background(), session); !ok || current.ID != 3 {
		t.Fatalf("expected stored profile")
	}
}

func TestLogoutClearsState(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})
	f.seedProfile(t, commerce.Customer{ID: 9})

	if err := f.svc.Logout(context.Background(), session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := f.svc.Current(context.Background(), session); ok {
		t.Fatalf("expected profile removed")
	}
	if f.auth != 1 {
		t.Fatalf("expected auth event")
	}
}

func TestCurrentTreatsMalformedAsAbsent(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})
	if err := f.state.Set(context.Background(), session, enums.StateKeyCustomer, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := f.svc.Current(context.Background(), session); ok {
		t.Fatalf("expected malformed profile to be absent")
	}
}

func TestUpdateProfileMergesBilling(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})
	f.seedProfile(t, commerce.Customer{
		ID:    9,
		Email: "old@example.com",
		Billing: commerce.Address{
			Address1: "1 Main St",
			City:     "Mobile",
			Country:  "US",
		},
	})

	updated, err := f.svc.UpdateProfile(context.Background(), session, ProfileInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		City:      "Huntsville",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if f.api.updateID != 9 {
		t.Fatalf("expected update for id 9, got %d", f.api.updateID)
	}
	billing := f.api.updated.Billing
	if billing.Address1 != "1 Main St" || billing.City != "Huntsville" || billing.Country != "US" || billing.Phone != "555-0100" {
		t.Fatalf("unexpected merged billing %+v", billing)
	}
	if updated.Email != "ada@example.com" {
		t.Fatalf("unexpected updated profile %+v", updated)
	}
	current, _ := f.svc.Current(context.Background(), session)
	if current.FirstName != "Ada" {
		t.Fatalf("expected persisted update")
	}
}

func TestProfileOperationsRequireLogin(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	if _, err := f.svc.UpdateProfile(context.Background(), session, ProfileInput{}); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Orders(context.Background(), session); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestOrdersDegradeToEmpty(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})
	f.seedProfile(t, commerce.Customer{ID: 9})
	f.api.ordersErr = errors.New("upstream down")

	orders, err := f.svc.Orders(context.Background(), session)
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Fatalf("expected empty list, got %v", orders)
	}

	f.api.ordersErr = nil
	f.api.orders = []commerce.Order{{ID: 1}, {ID: 2}}
	orders, err = f.svc.Orders(context.Background(), session)
	if err != nil || len(orders) != 2 {
		t.Fatalf("expected two orders, got %v (%v)", orders, err)
	}
}
