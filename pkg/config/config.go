package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "FRESHKART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FRESHKART_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRESHKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESHKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FRESHKART_DB_DSN"`
	Driver string `envconfig:"FRESHKART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FRESHKART_DB_HOST"`
	Port     int    `envconfig:"FRESHKART_DB_PORT" default:"5432"`
	User     string `envconfig:"FRESHKART_DB_USER"`
	Password string `envconfig:"FRESHKART_DB_PASSWORD"`
	Name     string `envconfig:"FRESHKART_DB_NAME"`
	SSLMode  string `envconfig:"FRESHKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHKART_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"FRESHKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FRESHKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRESHKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FRESHKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RazorpayConfig struct {
	KeyID          string        `envconfig:"FRESHKART_RAZORPAY_KEY_ID" required:"true"`
	KeySecret      string        `envconfig:"FRESHKART_RAZORPAY_KEY_SECRET" required:"true"`
	RequestTimeout time.Duration `envconfig:"FRESHKART_RAZORPAY_REQUEST_TIMEOUT" default:"10s"`
}

type CheckoutConfig struct {
	FreeDeliveryThreshold string `envconfig:"FRESHKART_FREE_DELIVERY_THRESHOLD" default:"500"`
	DeliveryCharge        string `envconfig:"FRESHKART_DELIVERY_CHARGE" default:"40"`
	MinGatewayCharge      string `envconfig:"FRESHKART_MIN_GATEWAY_CHARGE" default:"1"`
}

// FreeDeliveryThresholdAmount parses the configured threshold, falling back to 500.
func (c CheckoutConfig) FreeDeliveryThresholdAmount() decimal.Decimal {
	return parseAmount(c.FreeDeliveryThreshold, 500)
}

// DeliveryChargeAmount parses the configured flat fee, falling back to 40.
func (c CheckoutConfig) DeliveryChargeAmount() decimal.Decimal {
	return parseAmount(c.DeliveryCharge, 40)
}

// MinGatewayChargeAmount parses the minimum gateway charge, falling back to 1.
func (c CheckoutConfig) MinGatewayChargeAmount() decimal.Decimal {
	return parseAmount(c.MinGatewayCharge, 1)
}

func parseAmount(raw string, fallback int64) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.NewFromInt(fallback)
	}
	return value
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"FRESHKART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"FRESHKART_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
	VerifyWindow   time.Duration `envconfig:"FRESHKART_RATE_LIMIT_VERIFY_WINDOW" default:"1m"`
	VerifyLimit    int           `envconfig:"FRESHKART_RATE_LIMIT_VERIFY_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FRESHKART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"FRESHKART_DB_HOST": db.Host,
		"FRESHKART_DB_USER": db.User,
		"FRESHKART_DB_NAME": db.Name,
	}
	for _, key := range []string{"FRESHKART_DB_HOST", "FRESHKART_DB_USER", "FRESHKART_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either FRESHKART_DB_DSN or %s are required", strings.Join(missing, ", "))
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
