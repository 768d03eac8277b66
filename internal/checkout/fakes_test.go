package checkout

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
)

type stubCommerce struct {
	zones        []commerce.ShippingZone
	zonesErr     error
	locations    map[int64][]commerce.ZoneLocation
	locationsErr error
	methods      map[int64][]commerce.ShippingMethod
	methodsErr   error
	countries    []commerce.Country
	countriesErr error
	gateways     []commerce.PaymentGateway
	gatewaysErr  error
	states       map[string][]commerce.State
	statesErr    error

	mu          sync.Mutex
	stateGates  map[string]chan struct{}
	stateCalls  []string
	zoneQueried []int64
}

func (s *stubCommerce) ShippingZones(context.Context) ([]commerce.ShippingZone, error) {
	return s.zones, s.zonesErr
}

func (s *stubCommerce) ZoneLocations(_ context.Context, zoneID int64) ([]commerce.ZoneLocation, error) {
	s.mu.Lock()
	s.zoneQueried = append(s.zoneQueried, zoneID)
	s.mu.Unlock()
	return s.locations[zoneID], s.locationsErr
}

func (s *stubCommerce) ZoneMethods(_ context.Context, zoneID int64) ([]commerce.ShippingMethod, error) {
	return s.methods[zoneID], s.methodsErr
}

func (s *stubCommerce) Countries(context.Context) ([]commerce.Country, error) {
	return s.countries, s.countriesErr
}

func (s *stubCommerce) CountryStates(_ context.Context, code string) ([]commerce.State, error) {
	s.mu.Lock()
	s.stateCalls = append(s.stateCalls, code)
	gate := s.stateGates[code]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return s.states[code], s.statesErr
}

func (s *stubCommerce) PaymentGateways(context.Context) ([]commerce.PaymentGateway, error) {
	return s.gateways, s.gatewaysErr
}

func (s *stubCommerce) gate(code string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stateGates == nil {
		s.stateGates = map[string]chan struct{}{}
	}
	ch := make(chan struct{})
	s.stateGates[code] = ch
	return ch
}

func (s *stubCommerce) stateCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stateCalls)
}

func flatRate(id int64, title, cost string) commerce.ShippingMethod {
	m := commerce.ShippingMethod{ID: id, Title: title, Enabled: true, MethodID: "flat_rate"}
	if cost != "" {
		m.Settings.Cost = &commerce.SettingValue{ID: "cost", Value: cost}
	}
	return m
}

// newStoreAPI returns a shop with a USA zone restricted to US and CA.
func newStoreAPI() *stubCommerce {
	return &stubCommerce{
		zones: []commerce.ShippingZone{
			{ID: 1, Name: "Europe"},
			{ID: 2, Name: "Domestic USA"},
		},
		locations: map[int64][]commerce.ZoneLocation{
			2: {
				{Code: "US", Type: enums.LocationTypeCountry},
				{Code: "CA", Type: enums.LocationTypeCountry},
			},
		},
		methods: map[int64][]commerce.ShippingMethod{
			2: {
				{ID: 7, Title: "Disabled", Enabled: false},
				flatRate(9, "Flat rate", "5.00"),
				flatRate(11, "Free shipping", ""),
			},
		},
		countries: []commerce.Country{
			{Code: "CA", Name: "Canada"},
			{Code: "DE", Name: "Germany"},
			{Code: "US", Name: "United States (US)"},
		},
		gateways: []commerce.PaymentGateway{
			{ID: "bacs", Title: "Direct bank transfer", Enabled: true},
			{ID: "cheque", Title: "Check payments", Enabled: false},
			{ID: "cod", Title: "Cash on delivery", Enabled: true},
		},
		states: map[string][]commerce.State{
			"US": {{Code: "AL", Name: "Alabama"}, {Code: "CA", Name: "California"}},
			"CA": {{Code: "AB", Name: "Alberta"}},
		},
	}
}
