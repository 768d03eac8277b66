package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StateDriverRedis  = "redis"
	StateDriverSQL    = "sql"
	StateDriverMemory = "memory"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv               = "STOREFRONT_APP_ENV"
	EnvPort                 = "STOREFRONT_APP_PORT"
	EnvCommerceURL          = "STOREFRONT_COMMERCE_BASE_URL"
	EnvCommerceKey          = "STOREFRONT_COMMERCE_CONSUMER_KEY"
	EnvCommerceSecret       = "STOREFRONT_COMMERCE_CONSUMER_SECRET"
	EnvCommerceTimeout      = "STOREFRONT_COMMERCE_TIMEOUT"
	EnvStateDriver          = "STOREFRONT_STATE_DRIVER"
	EnvDBDSN                = "STOREFRONT_DB_DSN"
	EnvDBDriver             = "STOREFRONT_DB_DRIVER"
	EnvDBHost               = "STOREFRONT_DB_HOST"
	EnvDBUser               = "STOREFRONT_DB_USER"
	EnvDBName               = "STOREFRONT_DB_NAME"
	EnvRedisURL             = "STOREFRONT_REDIS_URL"
	EnvRedisAddr            = "STOREFRONT_REDIS_ADDR"
	EnvSessionSecret        = "STOREFRONT_SESSION_SECRET"
	EnvAllowUnverifiedLogin = "STOREFRONT_AUTH_ALLOW_UNVERIFIED_LOGIN"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
