package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// EnvPrefix namespaces every LocalKart environment variable.
const EnvPrefix = "LOCALKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LOCALKART_DB_DSN"
	EnvDBHost = "LOCALKART_DB_HOST"
	EnvDBUser = "LOCALKART_DB_USER"
	EnvDBName = "LOCALKART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Delivery      DeliveryConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Orders.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOCALKART_APP_ENV" required:"true"`
	Port         string `envconfig:"LOCALKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOCALKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOCALKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LOCALKART_DB_DSN"`
	Driver string `envconfig:"LOCALKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOCALKART_DB_HOST"`
	LegacyPort     int    `envconfig:"LOCALKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOCALKART_DB_USER"`
	LegacyPassword string `envconfig:"LOCALKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOCALKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOCALKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOCALKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOCALKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOCALKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOCALKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOCALKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOCALKART_REDIS_ADDR"`
	Password     string        `envconfig:"LOCALKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOCALKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOCALKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOCALKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOCALKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOCALKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOCALKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LOCALKART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LOCALKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LOCALKART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LOCALKART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LOCALKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LOCALKART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LOCALKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LOCALKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LOCALKART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"LOCALKART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"LOCALKART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"LOCALKART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOCALKART_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig tunes order intake and seller payout accounting.
type OrdersConfig struct {
	CommissionRate    string `envconfig:"LOCALKART_ORDERS_COMMISSION_RATE" default:"0.05"`
	OrderNumberPrefix string `envconfig:"LOCALKART_ORDERS_NUMBER_PREFIX" default:"LK"`
	OTPLength         int    `envconfig:"LOCALKART_ORDERS_OTP_LENGTH" default:"6"`
}

// Rate parses the configured commission rate into a decimal.
func (o OrdersConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(o.CommissionRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid commission rate %q: %w", o.CommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("commission rate %q out of range", o.CommissionRate)
	}
	return rate, nil
}

// DeliveryConfig tunes the agent handoff protocol.
type DeliveryConfig struct {
	LocationTTL time.Duration `envconfig:"LOCALKART_DELIVERY_LOCATION_TTL" default:"60s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LOCALKART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LOCALKART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LOCALKART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"LOCALKART_PUBSUB_DOMAIN_TOPIC" default:"lk-domain-events"`
	DomainSubscription string `envconfig:"LOCALKART_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LOCALKART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LOCALKART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LOCALKART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
