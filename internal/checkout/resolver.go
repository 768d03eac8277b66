package checkout

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const preferredZoneName = "usa"

// CommerceAPI is the subset of the commerce client the resolver reads from.
type CommerceAPI interface {
	ShippingZones(ctx context.Context) ([]commerce.ShippingZone, error)
	ZoneLocations(ctx context.Context, zoneID int64) ([]commerce.ZoneLocation, error)
	ZoneMethods(ctx context.Context, zoneID int64) ([]commerce.ShippingMethod, error)
	Countries(ctx context.Context) ([]commerce.Country, error)
	CountryStates(ctx context.Context, countryCode string) ([]commerce.State, error)
	PaymentGateways(ctx context.Context) ([]commerce.PaymentGateway, error)
}

// Snapshot is a copy of the resolver's state at one point in time.
type Snapshot struct {
	State           enums.ResolverState       `json:"state"`
	Reason          pkgerrors.Code            `json:"reason,omitempty"`
	Zone            *commerce.ShippingZone    `json:"zone,omitempty"`
	Countries       []Option                  `json:"countries"`
	States          []Option                  `json:"states"`
	StateFreeText   bool                      `json:"state_free_text"`
	ShippingMethods []commerce.ShippingMethod `json:"shipping_methods"`
	PaymentGateways []commerce.PaymentGateway `json:"payment_gateways"`
	Form            Form                      `json:"form"`
	Warnings        []string                  `json:"warnings,omitempty"`
}

// SelectedMethod returns the shipping method the form points at, if any.
func (s Snapshot) SelectedMethod() (commerce.ShippingMethod, bool) {
	return findMethod(s.ShippingMethods, s.Form.ShippingMethodID)
}

// ShippingCost is the flat cost of the selected method, nil when none is
// selected or the method carries no cost.
func (s Snapshot) ShippingCost() *decimal.Decimal {
	method, ok := s.SelectedMethod()
	if !ok {
		return nil
	}
	return method.FlatCost()
}

// Resolver derives the checkout option sets for one session: the shipping
// zone, its eligible countries, the state list of the selected country,
// shipping methods and payment gateways. Network calls run outside the
// lock; a state-list response is applied only if its token is current.
type Resolver struct {
	api     CommerceAPI
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics

	mu            sync.Mutex
	state         enums.ResolverState
	reason        pkgerrors.Code
	zone          *commerce.ShippingZone
	countries     []Option
	states        []Option
	stateFreeText bool
	methods       []commerce.ShippingMethod
	gateways      []commerce.PaymentGateway
	form          Form
	warnings      error
	token         uint64
}

func NewResolver(api CommerceAPI, logg *logger.Logger, m *metrics.StorefrontMetrics) *Resolver {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{
		api:     api,
		logg:    logg,
		metrics: m,
		state:   enums.ResolverStateIdle,
	}
}

// Enter runs the resolver from Idle to Ready. It returns NO_SHIPPING_ZONE
// when no zone can be resolved; every other fetch failure degrades to an
// empty option set and is reported through Snapshot.Warnings.
func (r *Resolver) Enter(ctx context.Context, profile *commerce.Customer) error {
	r.mu.Lock()
	if r.state != enums.ResolverStateIdle {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already started")
	}
	r.form = prefill(profile)
	r.transition(enums.ResolverStateLoadingZones)
	r.mu.Unlock()

	zones, err := r.api.ShippingZones(ctx)
	if err != nil {
		r.logg.Error(ctx, "checkout.zones.fetch_failed", err)
	}
	if len(zones) == 0 {
		r.mu.Lock()
		r.warn(err)
		r.reason = pkgerrors.CodeNoShippingZone
		r.transition(enums.ResolverStateError)
		r.mu.Unlock()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNoShippingZone, err, "no shipping zone available")
		}
		return pkgerrors.New(pkgerrors.CodeNoShippingZone, "no shipping zone available")
	}
	zone := selectZone(zones)

	var (
		locations                                        []commerce.ZoneLocation
		methods                                          []commerce.ShippingMethod
		catalog                                          []commerce.Country
		gateways                                         []commerce.PaymentGateway
		locationsErr, methodsErr, catalogErr, gatewayErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		locations, locationsErr = r.api.ZoneLocations(ctx, zone.ID)
		return nil
	})
	g.Go(func() error {
		methods, methodsErr = r.api.ZoneMethods(ctx, zone.ID)
		return nil
	})
	g.Go(func() error {
		catalog, catalogErr = r.api.Countries(ctx)
		return nil
	})
	g.Go(func() error {
		gateways, gatewayErr = r.api.PaymentGateways(ctx)
		return nil
	})
	_ = g.Wait()

	degraded := multierr.Combine(
		r.degrade(ctx, "checkout.locations.fetch_failed", locationsErr),
		r.degrade(ctx, "checkout.methods.fetch_failed", methodsErr),
		r.degrade(ctx, "checkout.countries.fetch_failed", catalogErr),
		r.degrade(ctx, "checkout.gateways.fetch_failed", gatewayErr),
	)

	// A zone whose locations could not be read ships everywhere, the same
	// as a zone with no locations.
	if locationsErr != nil {
		locations = nil
	}
	countries := eligibleCountries(catalog, locations)

	r.mu.Lock()
	r.warn(degraded)
	r.zone = &zone
	r.countries = countries
	r.methods = enabledMethods(methods)
	r.gateways = enabledGateways(gateways)
	if len(r.methods) > 0 {
		r.form.ShippingMethodID = methodKey(r.methods[0])
	} else {
		r.form.ShippingMethodID = ""
	}
	r.form.PaymentGatewayID = ""
	r.transition(enums.ResolverStateZoneResolved)

	country := defaultCountry(countries, r.form.Country)
	r.form.Country = country
	if country == "" {
		r.states = nil
		r.stateFreeText = true
		r.form.State = ""
		r.transition(enums.ResolverStateReady)
		r.mu.Unlock()
		return nil
	}
	token := r.beginStates()
	r.mu.Unlock()

	r.loadStates(ctx, country, token)
	return nil
}

// ChangeCountry selects an eligible country and reloads its state list.
func (r *Resolver) ChangeCountry(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	switch r.state {
	case enums.ResolverStateIdle, enums.ResolverStateLoadingZones, enums.ResolverStateError:
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout options are not resolved")
	}
	if !hasOption(r.countries, code) {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "country is not eligible for shipping").
			WithDetails(map[string]string{"country": "is not in the shipping zone"})
	}
	r.form.Country = code
	r.form.State = ""
	token := r.beginStates()
	r.mu.Unlock()

	r.loadStates(ctx, code, token)
	return nil
}

// UpdateForm applies a partial form edit. Selections must come from the
// resolved option sets.
func (r *Resolver) UpdateForm(patch FormPatch) (Snapshot, error) {
	patch = patch.normalized()
	if err := validation.Struct(patch); err != nil {
		return r.Snapshot(), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.form
	next.apply(patch)

	details := map[string]string{}
	if patch.State != nil && !r.stateFreeText {
		switch {
		case next.State == "":
			details["state"] = "is required for the selected country"
		case !hasOption(r.states, next.State):
			details["state"] = "is not a state of the selected country"
		}
	}
	if patch.ShippingMethodID != nil && next.ShippingMethodID != "" {
		if _, ok := findMethod(r.methods, next.ShippingMethodID); !ok {
			details["shipping_method_id"] = "is not an available shipping method"
		}
	}
	if patch.PaymentGatewayID != nil && next.PaymentGatewayID != "" {
		if _, ok := findGateway(r.gateways, next.PaymentGatewayID); !ok {
			details["payment_gateway_id"] = "is not an available payment method"
		}
	}
	if len(details) > 0 {
		return r.snapshotLocked(), pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout form").WithDetails(details)
	}
	r.form = next
	return r.snapshotLocked(), nil
}

func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) loadStates(ctx context.Context, country string, token uint64) {
	states, err := r.api.CountryStates(ctx, country)

	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.token {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"country": country,
			"token":   token,
		}), "checkout.states.stale")
		return
	}
	if err != nil {
		r.logg.Error(ctx, "checkout.states.fetch_failed", err)
		r.warn(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "states for "+country+" unavailable"))
		states = nil
	}
	r.states = stateOptions(states)
	r.stateFreeText = len(r.states) == 0
	if r.stateFreeText {
		r.form.State = ""
	} else {
		r.form.State = r.states[0].Code
	}
	r.transition(enums.ResolverStateReady)
}

// beginStates must be called with mu held.
func (r *Resolver) beginStates() uint64 {
	r.token++
	r.transition(enums.ResolverStateLoadingStates)
	return r.token
}

func (r *Resolver) transition(next enums.ResolverState) {
	r.state = next
	r.metrics.IncTransition(next.String())
}

func (r *Resolver) warn(err error) {
	if err != nil {
		r.warnings = multierr.Append(r.warnings, err)
	}
}

func (r *Resolver) degrade(ctx context.Context, event string, err error) error {
	if err == nil {
		return nil
	}
	r.logg.Error(ctx, event, err)
	return err
}

func (r *Resolver) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           r.state,
		Reason:          r.reason,
		Countries:       append([]Option(nil), r.countries...),
		States:          append([]Option(nil), r.states...),
		StateFreeText:   r.stateFreeText,
		ShippingMethods: append([]commerce.ShippingMethod(nil), r.methods...),
		PaymentGateways: append([]commerce.PaymentGateway(nil), r.gateways...),
		Form:            r.form,
	}
	if r.zone != nil {
		zone := *r.zone
		snap.Zone = &zone
	}
	for _, err := range multierr.Errors(r.warnings) {
		snap.Warnings = append(snap.Warnings, err.Error())
	}
	return snap
}

func selectZone(zones []commerce.ShippingZone) commerce.ShippingZone {
	for _, zone := range zones {
		if strings.Contains(strings.ToLower(zone.Name), preferredZoneName) {
			return zone
		}
	}
	return zones[0]
}

// eligibleCountries filters the catalog by the zone's locations. A continent
// entry, or no location at all, leaves the catalog unrestricted.
func eligibleCountries(catalog []commerce.Country, locations []commerce.ZoneLocation) []Option {
	allowed := map[string]struct{}{}
	restricted := len(locations) > 0
	for _, loc := range locations {
		switch loc.Type {
		case enums.LocationTypeContinent:
			restricted = false
		case enums.LocationTypeCountry, enums.LocationTypeState:
			allowed[loc.CountryCode()] = struct{}{}
		}
	}
	if restricted && len(allowed) == 0 {
		restricted = false
	}

	out := make([]Option, 0, len(catalog))
	for _, country := range catalog {
		if restricted {
			if _, ok := allowed[country.Code]; !ok {
				continue
			}
		}
		name := country.Name
		if name == "" {
			name = country.Code
		}
		out = append(out, Option{Code: country.Code, Name: name})
	}
	return out
}

func defaultCountry(countries []Option, preferred string) string {
	if preferred != "" && hasOption(countries, preferred) {
		return preferred
	}
	if len(countries) == 0 {
		return ""
	}
	return countries[0].Code
}

func stateOptions(states []commerce.State) []Option {
	if len(states) == 0 {
		return nil
	}
	out := make([]Option, 0, len(states))
	for _, s := range states {
		name := s.Name
		if name == "" {
			name = s.Code
		}
		out = append(out, Option{Code: s.Code, Name: name})
	}
	return out
}

func enabledMethods(methods []commerce.ShippingMethod) []commerce.ShippingMethod {
	out := make([]commerce.ShippingMethod, 0, len(methods))
	for _, m := range methods {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

func enabledGateways(gateways []commerce.PaymentGateway) []commerce.PaymentGateway {
	out := make([]commerce.PaymentGateway, 0, len(gateways))
	for _, g := range gateways {
		if g.Enabled {
			out = append(out, g)
		}
	}
	return out
}

func methodKey(m commerce.ShippingMethod) string {
	return strconv.FormatInt(m.ID, 10)
}

func findMethod(methods []commerce.ShippingMethod, key string) (commerce.ShippingMethod, bool) {
	for _, m := range methods {
		if methodKey(m) == key {
			return m, true
		}
	}
	return commerce.ShippingMethod{}, false
}

func findGateway(gateways []commerce.PaymentGateway, id string) (commerce.PaymentGateway, bool) {
	for _, g := range gateways {
		if g.ID == id {
			return g, true
		}
	}
	return commerce.PaymentGateway{}, false
}
