package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvUseSQLite = "STOREFRONT_USE_SQLITE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvFreeDeliveryThreshold = "STOREFRONT_FREE_DELIVERY_THRESHOLD"
	EnvDeliveryPercentage    = "STOREFRONT_STANDARD_DELIVERY_PERCENTAGE"
	EnvCurrency              = "STOREFRONT_CURRENCY"

	EnvStripeAPIKey = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret = "STOREFRONT_STRIPE_WH_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
