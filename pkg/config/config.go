package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	// CORSOrigins lists the browser origins allowed to call the API with the
	// session cookie.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig controls the anonymous shopping session cookie.
type SessionConfig struct {
	CookieName   string        `envconfig:"STOREFRONT_SESSION_COOKIE" default:"sf_session"`
	TTL          time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"336h"`
	SecureCookie bool          `envconfig:"STOREFRONT_SESSION_SECURE" default:"true"`
}

// JWTConfig verifies bearer tokens minted by the identity provider.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	// ExpirationMinutes bounds tokens minted locally (dev tooling, tests).
	ExpirationMinutes int `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the default pricing rules. The store settings row
// overrides them per request when present.
type CheckoutConfig struct {
	FreeDeliveryThreshold      string        `envconfig:"STOREFRONT_FREE_DELIVERY_THRESHOLD" default:"50"`
	StandardDeliveryPercentage string        `envconfig:"STOREFRONT_STANDARD_DELIVERY_PERCENTAGE" default:"5"`
	Currency                   string        `envconfig:"STOREFRONT_CURRENCY" default:"eur"`
	WebhookLookupAttempts      int           `envconfig:"STOREFRONT_WEBHOOK_LOOKUP_ATTEMPTS" default:"5"`
	WebhookLookupDelay         time.Duration `envconfig:"STOREFRONT_WEBHOOK_LOOKUP_DELAY" default:"1s"`
	WebhookIdempotencyTTL      time.Duration `envconfig:"STOREFRONT_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// Threshold returns the parsed free delivery threshold.
func (c CheckoutConfig) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.FreeDeliveryThreshold))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DeliveryPercentage returns the parsed standard delivery percentage.
func (c CheckoutConfig) DeliveryPercentage() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.StandardDeliveryPercentage))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (c CheckoutConfig) validate() error {
	threshold, err := decimal.NewFromString(strings.TrimSpace(c.FreeDeliveryThreshold))
	if err != nil || threshold.IsNegative() {
		return fmt.Errorf("%s must be a non-negative decimal", EnvFreeDeliveryThreshold)
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(c.StandardDeliveryPercentage))
	if err != nil || pct.IsNegative() {
		return fmt.Errorf("%s must be a non-negative decimal", EnvDeliveryPercentage)
	}
	return nil
}

type StripeConfig struct {
	APIKey         string        `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	PublishableKey string        `envconfig:"STOREFRONT_STRIPE_PUBLIC_KEY"`
	Secret         string        `envconfig:"STOREFRONT_STRIPE_WH_SECRET"`
	Env            string        `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	Timeout        time.Duration `envconfig:"STOREFRONT_STRIPE_TIMEOUT" default:"10s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"sf-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MaintenanceConfig struct {
	Interval            time.Duration `envconfig:"STOREFRONT_MAINTENANCE_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"STOREFRONT_MAINTENANCE_OUTBOX_RETENTION_DAYS" default:"30"`
	// PendingPaymentAge is how long an order may wait for its webhook before
	// the processor is asked directly.
	PendingPaymentAge   time.Duration `envconfig:"STOREFRONT_MAINTENANCE_PENDING_PAYMENT_AGE" default:"1h"`
	PendingPaymentBatch int           `envconfig:"STOREFRONT_MAINTENANCE_PENDING_PAYMENT_BATCH" default:"100"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"STOREFRONT_METRICS_PATH" default:"/metrics"`
	// WorkerAddr is where background workers expose their metrics.
	WorkerAddr string `envconfig:"STOREFRONT_METRICS_WORKER_ADDR" default:":9091"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
