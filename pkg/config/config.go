package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VIATURA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VIATURA_DB_DSN"
	EnvDBHost = "VIATURA_DB_HOST"
	EnvDBUser = "VIATURA_DB_USER"
	EnvDBName = "VIATURA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	FeatureFlags FeatureFlagsConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Square       SquareConfig
	Refunds      RefundsConfig
	RateLimit    RateLimitConfig
	Orders       OrdersConfig
	Cron         CronConfig
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
	Env          string `envconfig:"VIATURA_APP_ENV" required:"true"`
	Port         string `envconfig:"VIATURA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VIATURA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VIATURA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VIATURA_SERVICE_KIND" default:"api"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VIATURA_AUTO_MIGRATE" default:"false"`
}

type DBConfig struct {
	DSN    string `envconfig:"VIATURA_DB_DSN"`
	Driver string `envconfig:"VIATURA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VIATURA_DB_HOST"`
	LegacyPort     int    `envconfig:"VIATURA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VIATURA_DB_USER"`
	LegacyPassword string `envconfig:"VIATURA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VIATURA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VIATURA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VIATURA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VIATURA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VIATURA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VIATURA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VIATURA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VIATURA_REDIS_ADDR"`
	Password     string        `envconfig:"VIATURA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VIATURA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VIATURA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VIATURA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VIATURA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VIATURA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VIATURA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VIATURA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VIATURA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VIATURA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	RefundEventsTopic        string `envconfig:"VIATURA_PUBSUB_REFUND_EVENTS_TOPIC" default:"vt-refund-events"`
	RefundEventsSubscription string `envconfig:"VIATURA_PUBSUB_REFUND_EVENTS_SUBSCRIPTION"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"VIATURA_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"VIATURA_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"VIATURA_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type RefundsConfig struct {
	MaxAttempts    int           `envconfig:"VIATURA_REFUNDS_MAX_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"VIATURA_REFUNDS_RETRY_BACKOFF" default:"1m"`
	SubmitTimeout  time.Duration `envconfig:"VIATURA_REFUNDS_SUBMIT_TIMEOUT" default:"10s"`
	PollAfter      time.Duration `envconfig:"VIATURA_REFUNDS_POLL_AFTER" default:"2m"`
	IdempotencyTTL time.Duration `envconfig:"VIATURA_REFUNDS_IDEMPOTENCY_TTL" default:"720h"`
}

type RateLimitConfig struct {
	WebhookWindow  time.Duration `envconfig:"VIATURA_RATELIMIT_WEBHOOK_WINDOW" default:"1m"`
	WebhookIPLimit int           `envconfig:"VIATURA_RATELIMIT_WEBHOOK_IP_LIMIT" default:"120"`
}

type OrdersConfig struct {
	ArrivalCodeTTL time.Duration `envconfig:"VIATURA_ORDERS_ARRIVAL_CODE_TTL" default:"24h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"VIATURA_CRON_INTERVAL" default:"1m"`
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
