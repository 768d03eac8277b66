package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Commerce CommerceConfig
	State    StateConfig
	DB       DBConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.State.validate(); err != nil {
		return nil, err
	}
	if cfg.State.Driver == StateDriverSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.State.Driver == StateDriverRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvStateDriver, StateDriverRedis)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool     `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points at the upstream commerce REST API.
type CommerceConfig struct {
	BaseURL         string        `envconfig:"STOREFRONT_COMMERCE_BASE_URL" required:"true"`
	ConsumerKey     string        `envconfig:"STOREFRONT_COMMERCE_CONSUMER_KEY" required:"true"`
	ConsumerSecret  string        `envconfig:"STOREFRONT_COMMERCE_CONSUMER_SECRET" required:"true"`
	Timeout         time.Duration `envconfig:"STOREFRONT_COMMERCE_TIMEOUT" default:"15s"`
	BreakerFailures uint32        `envconfig:"STOREFRONT_COMMERCE_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"STOREFRONT_COMMERCE_BREAKER_COOLDOWN" default:"30s"`
}

// StateConfig selects the backend holding per-session storefront state.
type StateConfig struct {
	Driver        string        `envconfig:"STOREFRONT_STATE_DRIVER" default:"redis"`
	TTL           time.Duration `envconfig:"STOREFRONT_STATE_TTL" default:"720h"`
	PurgeInterval time.Duration `envconfig:"STOREFRONT_STATE_PURGE_INTERVAL" default:"1h"`
}

func (s StateConfig) validate() error {
	switch s.Driver {
	case StateDriverRedis, StateDriverSQL, StateDriverMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %s|%s|%s, got %q", EnvStateDriver, StateDriverRedis, StateDriverSQL, StateDriverMemory, s.Driver)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// SessionConfig signs the session tokens that scope storefront state.
type SessionConfig struct {
	Secret string        `envconfig:"STOREFRONT_SESSION_SECRET" required:"true"`
	Issuer string        `envconfig:"STOREFRONT_SESSION_ISSUER" default:"storefront"`
	TTL    time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"720h"`
}

type AuthConfig struct {
	// AllowUnverifiedLogin enables the email-lookup login. The commerce API
	// cannot check passwords, so this stays off unless explicitly accepted.
	AllowUnverifiedLogin bool          `envconfig:"STOREFRONT_AUTH_ALLOW_UNVERIFIED_LOGIN" default:"false"`
	LoginWindow          time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit      int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow       time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit   int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit      int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"STOREFRONT_CATALOG_CACHE_TTL" default:"5m"`
	PageSize int           `envconfig:"STOREFRONT_CATALOG_PAGE_SIZE" default:"100"`
}

// CheckoutConfig bounds the in-process checkout resolvers. They live on the
// instance that served Begin and are dropped once idle for IdleTTL.
type CheckoutConfig struct {
	IdleTTL       time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDLE_TTL" default:"2h"`
	SweepInterval time.Duration `envconfig:"STOREFRONT_CHECKOUT_SWEEP_INTERVAL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
