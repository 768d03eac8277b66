package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/customers"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// Dependencies carries everything the HTTP layer serves. RateLimiter and
// Idempotency are nil when redis is not configured, which disables those
// middlewares.
type Dependencies struct {
	Catalog     catalog.Service
	Cart        controllers.CartStore
	Checkout    checkout.Service
	Customers   customers.Service
	RateLimiter redis.RateLimiter
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Health      []controllers.Dependency
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.Auth.LoginWindow,
		cfg.Auth.LoginIPLimit,
		cfg.Auth.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.Auth.RegisterWindow,
		cfg.Auth.RegisterIPLimit,
		cfg.Auth.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health...))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, logg))

		r.Get("/products", controllers.ProductList(deps.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{index}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{index}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutBegin(deps.Checkout, logg))
			r.Get("/", controllers.CheckoutView(deps.Checkout, logg))
			r.Put("/country", controllers.CheckoutChangeCountry(deps.Checkout, logg))
			r.Patch("/form", controllers.CheckoutUpdateForm(deps.Checkout, logg))
			r.With(middleware.Idempotency(deps.Idempotency, logg)).
				Post("/orders", controllers.CheckoutPlaceOrder(deps.Checkout, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(registerPolicy, deps.RateLimiter, logg),
				middleware.Idempotency(deps.Idempotency, logg),
			).Post("/register", controllers.AuthRegister(deps.Customers, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).
				Post("/login", controllers.AuthLogin(deps.Customers, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Customers, logg))
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/", controllers.AccountFetch(deps.Customers, logg))
			r.Put("/", controllers.AccountUpdate(deps.Customers, logg))
			r.Get("/orders", controllers.AccountOrders(deps.Customers, logg))
		})
	})

	return otelhttp.NewHandler(r, "storefront.http")
}
