// Package config loads the storefront's STOREFRONT_* environment into typed
// settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Config is the full process configuration shared by every binary.
type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Cart          CartConfig
	Checkout      CheckoutConfig
	Sweeper       SweeperConfig
	Verification  VerificationConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	PubSub        PubSubConfig
}

// Load reads the environment, fills the DSN from the discrete STOREFRONT_DB_*
// variables when no DSN is given, and reports every invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if _, ferr := c.Checkout.FreightAmount(); ferr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", EnvCheckoutFreight, ferr))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.Cart.CookieTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCartCookieTTL))
	}
	if c.Sweeper.BatchSize <= 0 || c.Sweeper.UnpaidTTL <= 0 {
		err = multierr.Append(err, errors.New("sweeper batch size and unpaid ttl must be positive"))
	}
	if c.Checkout.MaxAttempts < 1 {
		err = multierr.Append(err, errors.New("checkout max attempts must be at least 1"))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
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

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits on a contended row lock.
	LockTimeout time.Duration `envconfig:"STOREFRONT_DB_LOCK_TIMEOUT" default:"3s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

// CartConfig controls the anonymous cart cookie.
type CartConfig struct {
	CookieName   string        `envconfig:"STOREFRONT_CART_COOKIE_NAME" default:"cart"`
	CookieTTL    time.Duration `envconfig:"STOREFRONT_CART_COOKIE_TTL" default:"72h"`
	CookieSecret string        `envconfig:"STOREFRONT_CART_COOKIE_SECRET"`
	CookieSecure bool          `envconfig:"STOREFRONT_CART_COOKIE_SECURE" default:"false"`
}

// SigningSecret returns the cookie secret, falling back to the JWT secret.
func (c CartConfig) SigningSecret(jwt JWTConfig) string {
	if strings.TrimSpace(c.CookieSecret) != "" {
		return c.CookieSecret
	}
	return jwt.Secret
}

type CheckoutConfig struct {
	Freight     string `envconfig:"STOREFRONT_CHECKOUT_FREIGHT" default:"10.00"`
	MaxAttempts int    `envconfig:"STOREFRONT_CHECKOUT_MAX_ATTEMPTS" default:"3"`
}

// SweeperConfig drives the cron worker that cancels abandoned online orders.
type SweeperConfig struct {
	Interval  time.Duration `envconfig:"STOREFRONT_SWEEPER_INTERVAL" default:"10m"`
	UnpaidTTL time.Duration `envconfig:"STOREFRONT_SWEEPER_UNPAID_TTL" default:"24h"`
	BatchSize int           `envconfig:"STOREFRONT_SWEEPER_BATCH_SIZE" default:"100"`
}

// FreightAmount parses the flat shipping fee.
func (c CheckoutConfig) FreightAmount() (decimal.Decimal, error) {
	value := strings.TrimSpace(c.Freight)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("freight must be non-negative, got %s", value)
	}
	return amount, nil
}

type VerificationConfig struct {
	SMSCodeTTL      time.Duration `envconfig:"STOREFRONT_SMS_CODE_TTL" default:"5m"`
	SMSResendWindow time.Duration `envconfig:"STOREFRONT_SMS_RESEND_WINDOW" default:"60s"`
	EmailTokenTTL   time.Duration `envconfig:"STOREFRONT_EMAIL_TOKEN_TTL" default:"24h"`
	EmailVerifyURL  string        `envconfig:"STOREFRONT_EMAIL_VERIFY_URL" default:"http://localhost:8080/success_verify_email.html"`
	AddressLimit    int           `envconfig:"STOREFRONT_ADDRESS_LIMIT" default:"20"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginAcctLimit  int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_ACCOUNT_LIMIT" default:"10"`
	RegisterWindow  time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	// AutoMigrate applies pending migrations at startup in dev.
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// PubSubConfig is optional; an empty topic routes notifications to the log dispatcher.
type PubSubConfig struct {
	ProjectID          string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	NotificationsTopic string `envconfig:"STOREFRONT_PUBSUB_NOTIFICATIONS_TOPIC"`
	// CredentialsFile is a service account key; empty uses application default credentials.
	CredentialsFile string `envconfig:"STOREFRONT_GCP_CREDENTIALS_FILE"`
	// CreateTopic creates a missing topic at startup instead of failing, for the emulator.
	CreateTopic bool `envconfig:"STOREFRONT_PUBSUB_CREATE_TOPIC" default:"false"`
}

// Enabled reports whether notifications should be published to Pub/Sub.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != "" && strings.TrimSpace(p.NotificationsTopic) != ""
}

// ensureDSN assembles a postgres URL from host, user and database name when
// no DSN was given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	parts := map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName}
	var missing []string
	for _, env := range legacyDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
