package config

const EnvPrefix = "FITCONNECT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

var storeDrivers = []string{StoreDriverSQLite, StoreDriverPostgres, StoreDriverRedis, StoreDriverMemory}

const (
	EnvAppEnv        = "FITCONNECT_APP_ENV"
	EnvAPIBaseURL    = "FITCONNECT_API_BASE_URL"
	EnvAuthToken     = "FITCONNECT_AUTH_TOKEN"
	EnvCartStore     = "FITCONNECT_CART_STORE"
	EnvDBDSN         = "FITCONNECT_DB_DSN"
	EnvRedisURL      = "FITCONNECT_REDIS_URL"
	EnvRedisAddr     = "FITCONNECT_REDIS_ADDR"
	EnvTaxRate       = "FITCONNECT_TAX_RATE"
	EnvPromoCode     = "FITCONNECT_PROMO_CODE"
	EnvPromoPercent  = "FITCONNECT_PROMO_PERCENT"
	EnvPaymentWindow = "FITCONNECT_PAYMENT_WINDOW"
	EnvCartSync      = "FITCONNECT_CART_SYNC"
)
