package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Hashing      HashingConfig
	Lifecycle    LifecycleConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"VENDOROPS_APP_ENV" required:"true"`
	Port         string   `envconfig:"VENDOROPS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"VENDOROPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"VENDOROPS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"VENDOROPS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDOROPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDOROPS_DB_DSN"`
	Driver string `envconfig:"VENDOROPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDOROPS_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDOROPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDOROPS_DB_USER"`
	LegacyPassword string `envconfig:"VENDOROPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDOROPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDOROPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDOROPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDOROPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDOROPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDOROPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDOROPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDOROPS_REDIS_ADDR"`
	Password     string        `envconfig:"VENDOROPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDOROPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDOROPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDOROPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDOROPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDOROPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDOROPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDOROPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDOROPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDOROPS_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// HashingConfig carries the argon2id parameters used for one-time codes.
type HashingConfig struct {
	ArgonMemoryKB    int `envconfig:"VENDOROPS_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int `envconfig:"VENDOROPS_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"VENDOROPS_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"VENDOROPS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VENDOROPS_ARGON_KEY_LEN" default:"32"`
}

type LifecycleConfig struct {
	OTPMaxAttempts       int           `envconfig:"VENDOROPS_OTP_MAX_ATTEMPTS" default:"5"`
	OTPDefaultTTL        time.Duration `envconfig:"VENDOROPS_OTP_DEFAULT_TTL" default:"5m"`
	OTPCodeLength        int           `envconfig:"VENDOROPS_OTP_CODE_LENGTH" default:"6"`
	LoginCodeLength      int           `envconfig:"VENDOROPS_LOGIN_CODE_LENGTH" default:"4"`
	LoginCodeTTL         time.Duration `envconfig:"VENDOROPS_LOGIN_CODE_TTL" default:"5m"`
	PresenceTTL          time.Duration `envconfig:"VENDOROPS_PRESENCE_TTL" default:"90s"`
	DispatchRadiusMeters float64       `envconfig:"VENDOROPS_DISPATCH_RADIUS_METERS" default:"10000"`
	DispatchMaxVendors   int           `envconfig:"VENDOROPS_DISPATCH_MAX_VENDORS" default:"10"`
	DefaultCurrency      string        `envconfig:"VENDOROPS_DEFAULT_CURRENCY" default:"INR"`
}

type RateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"VENDOROPS_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginMobileLimit int           `envconfig:"VENDOROPS_RATE_LIMIT_LOGIN_MOBILE_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"VENDOROPS_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDOROPS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDOROPS_AUTO_MIGRATE" default:"false"`
	DevRoutes   bool `envconfig:"VENDOROPS_DEV_ROUTES" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"VENDOROPS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDOROPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDOROPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDOROPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"VENDOROPS_CRON_INTERVAL" default:"1m"`
	LockTTL                   time.Duration `envconfig:"VENDOROPS_CRON_LOCK_TTL" default:"5m"`
	OutboxRetentionDays       int           `envconfig:"VENDOROPS_CRON_OUTBOX_RETENTION_DAYS" default:"7"`
	NotificationRetentionDays int           `envconfig:"VENDOROPS_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OTPHygieneBatchSize       int           `envconfig:"VENDOROPS_CRON_OTP_HYGIENE_BATCH" default:"100"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"VENDOROPS_PUBSUB_NOTIFICATION_TOPIC" default:"vo-notification-events"`
	NotificationSubscription string `envconfig:"VENDOROPS_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"vo-notification-events-sub"`
	OrdersTopic              string `envconfig:"VENDOROPS_PUBSUB_ORDERS_TOPIC" default:"vo-order-events"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VENDOROPS_GCP_PROJECT_ID"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
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
