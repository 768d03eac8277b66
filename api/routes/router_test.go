package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/state"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		Session: config.SessionConfig{Secret: "secret", Issuer: "storefront", TTL: time.Hour},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	bus := events.NewBus(logger.Nop())
	store, err := cart.NewStore(state.NewMemoryStore(time.Hour), bus, logger.Nop(), metrics.NewStorefrontMetrics(reg))
	if err != nil {
		t.Fatalf("cart store: %v", err)
	}
	return NewRouter(testConfig(), logger.Nop(), Dependencies{
		Cart:     store,
		Gatherer: reg,
		Health:   []controllers.Dependency{{Name: "redis", Pinger: stubPinger{}}},
	})
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get(middleware.SessionHeader) != "" {
			t.Fatalf("%s: health routes should not start sessions", path)
		}
	}
}

func TestSessionCarriesCartAcrossRequests(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":4,"price":"3.00","quantity":2}`))
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("add item: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	token := resp.Header().Get(middleware.SessionHeader)
	if token == "" {
		t.Fatalf("expected session token")
	}

	resp = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.SessionHeader, token)
	router.ServeHTTP(resp, req)

	var envelope struct {
		Data struct {
			Lines   []json.RawMessage `json:"lines"`
			Summary struct {
				ItemCount int `json:"item_count"`
			} `json:"summary"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Lines) != 1 || envelope.Data.Summary.ItemCount != 2 {
		t.Fatalf("cart not carried by session: %+v", envelope.Data)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Lines) != 0 {
		t.Fatalf("new session should start empty")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":1}`)))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "cart_mutations_total") {
		t.Fatalf("expected cart mutation counter in metrics output")
	}
}

func TestUnwiredServicesReturnInternalError(t *testing.T) {
	router := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestIdempotencyDisabledWithoutStore(t *testing.T) {
	router := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/orders", nil))
	if resp.Code == http.StatusBadRequest {
		t.Fatalf("idempotency header should not be enforced without a store")
	}
}
