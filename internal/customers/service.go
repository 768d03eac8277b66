// Package customers manages the storefront account held in session state.
package customers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/state"
	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
)

type customerAPI interface {
	CreateCustomer(ctx context.Context, req commerce.CustomerCreate) (*commerce.Customer, error)
	FindCustomersByEmail(ctx context.Context, email string) ([]commerce.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, req commerce.CustomerUpdate) (*commerce.Customer, error)
	CustomerOrders(ctx context.Context, customerID int64) ([]commerce.Order, error)
}

// RegisterInput is the account creation form.
type RegisterInput struct {
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Username        string `json:"username"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the account; billing fields left empty keep their
// stored value.
type ProfileInput struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

// Service exposes the customer account operations for a session.
type Service interface {
	Current(ctx context.Context, sessionID string) (*commerce.Customer, bool)
	Register(ctx context.Context, sessionID string, input RegisterInput) (*commerce.Customer, error)
	Login(ctx context.Context, sessionID string, input LoginInput) (*commerce.Customer, error)
	Logout(ctx context.Context, sessionID string) error
	UpdateProfile(ctx context.Context, sessionID string, input ProfileInput) (*commerce.Customer, error)
	Orders(ctx context.Context, sessionID string) ([]commerce.Order, error)
}

type service struct {
	api       customerAPI
	state     state.Store
	publisher events.Publisher
	cfg       config.AuthConfig
	logg      *logger.Logger
}

func NewService(api customerAPI, st state.Store, publisher events.Publisher, cfg config.AuthConfig, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("customer api required")
	}
	if st == nil {
		return nil, fmt.Errorf("state store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: api, state: st, publisher: publisher, cfg: cfg, logg: logg}, nil
}

// Current returns the stored profile. A malformed record counts as absent.
func (s *service) Current(ctx context.Context, sessionID string) (*commerce.Customer, bool) {
	if sessionID == "" {
		return nil, false
	}
	raw, found, err := s.state.Get(ctx, sessionID, enums.StateKeyCustomer)
	if err != nil {
		s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "customers.load.failed", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var profile commerce.Customer
	if err := json.Unmarshal(raw, &profile); err != nil || profile.ID == 0 {
		s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "customers.load.malformed")
		return nil, false
	}
	return &profile, true
}

func (s *service) Register(ctx context.Context, sessionID string, input RegisterInput) (*commerce.Customer, error) {
	input.Email = normalizeEmail(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	customer, err := s.api.CreateCustomer(ctx, commerce.CustomerCreate{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Username:  strings.TrimSpace(input.Username),
		Password:  input.Password,
		Billing: &commerce.Address{
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Email:     input.Email,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := s.signIn(ctx, sessionID, customer); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithCustomerID(s.logg.WithSessionID(ctx, sessionID), customer.ID), "customers.registered")
	return customer, nil
}

// Login signs the session in as the first customer with the given email.
// The commerce API cannot verify the password, so the path stays disabled
// unless explicitly allowed.
func (s *service) Login(ctx context.Context, sessionID string, input LoginInput) (*commerce.Customer, error) {
	if !s.cfg.AllowUnverifiedLogin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email login is disabled")
	}
	input.Email = normalizeEmail(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithSessionID(ctx, sessionID)
	s.logg.Warn(logCtx, "auth.login.unverified")

	matches, err := s.api.FindCustomersByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	customer := matches[0]
	if err := s.signIn(ctx, sessionID, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if err := s.state.Delete(ctx, sessionID, enums.StateKeyCustomer, enums.StateKeyIsLoggedIn); err != nil {
		return err
	}
	s.publisher.Publish(ctx, events.Event{Kind: enums.EventKindAuthChanged, SessionID: sessionID})
	return nil
}

func (s *service) UpdateProfile(ctx context.Context, sessionID string, input ProfileInput) (*commerce.Customer, error) {
	current, ok := s.Current(ctx, sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	input.Email = normalizeEmail(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	billing := current.Billing
	billing.FirstName = input.FirstName
	billing.LastName = input.LastName
	billing.Email = input.Email
	billing.Phone = input.Phone
	mergeField(&billing.Address1, input.Address1)
	mergeField(&billing.Address2, input.Address2)
	mergeField(&billing.City, input.City)
	mergeField(&billing.State, input.State)
	mergeField(&billing.Postcode, input.Postcode)
	mergeField(&billing.Country, strings.ToUpper(input.Country))

	updated, err := s.api.UpdateCustomer(ctx, current.ID, commerce.CustomerUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Billing:   &billing,
	})
	if err != nil {
		return nil, err
	}
	if err := s.storeProfile(ctx, sessionID, updated); err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Event{Kind: enums.EventKindAuthChanged, SessionID: sessionID})
	return updated, nil
}

// Orders lists the customer's orders. Upstream failures yield an empty list.
func (s *service) Orders(ctx context.Context, sessionID string) ([]commerce.Order, error) {
	current, ok := s.Current(ctx, sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	orders, err := s.api.CustomerOrders(ctx, current.ID)
	if err != nil {
		s.logg.Error(s.logg.WithCustomerID(ctx, current.ID), "customers.orders.fetch_failed", err)
		return []commerce.Order{}, nil
	}
	if orders == nil {
		orders = []commerce.Order{}
	}
	return orders, nil
}

func (s *service) signIn(ctx context.Context, sessionID string, customer *commerce.Customer) error {
	if err := s.storeProfile(ctx, sessionID, customer); err != nil {
		return err
	}
	flag, _ := json.Marshal(true)
	if err := s.state.Set(ctx, sessionID, enums.StateKeyIsLoggedIn, flag); err != nil {
		return err
	}
	s.publisher.Publish(ctx, events.Event{Kind: enums.EventKindAuthChanged, SessionID: sessionID})
	return nil
}

func (s *service) storeProfile(ctx context.Context, sessionID string, customer *commerce.Customer) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if customer == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "empty customer response")
	}
	raw, err := json.Marshal(customer)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode customer")
	}
	return s.state.Set(ctx, sessionID, enums.StateKeyCustomer, raw)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mergeField(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}
