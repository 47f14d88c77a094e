package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "nordtolk"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "NORDTOLK_DB_DSN"
	EnvDBHost = "NORDTOLK_DB_HOST"
	EnvDBUser = "NORDTOLK_DB_USER"
	EnvDBName = "NORDTOLK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Push          PushConfig
	SMS           SMSConfig
	Mail          MailConfig
	BusinessHours BusinessHoursConfig
	Booking       BookingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"NORDTOLK_APP_ENV" required:"true"`
	Port         string `envconfig:"NORDTOLK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NORDTOLK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NORDTOLK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NORDTOLK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NORDTOLK_DB_DSN"`
	Driver string `envconfig:"NORDTOLK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NORDTOLK_DB_HOST"`
	LegacyPort     int    `envconfig:"NORDTOLK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NORDTOLK_DB_USER"`
	LegacyPassword string `envconfig:"NORDTOLK_DB_PASSWORD"`
	LegacyName     string `envconfig:"NORDTOLK_DB_NAME"`
	LegacySSLMode  string `envconfig:"NORDTOLK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NORDTOLK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NORDTOLK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NORDTOLK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NORDTOLK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NORDTOLK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NORDTOLK_REDIS_ADDR"`
	Password     string        `envconfig:"NORDTOLK_REDIS_PASSWORD"`
	DB           int           `envconfig:"NORDTOLK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NORDTOLK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NORDTOLK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NORDTOLK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NORDTOLK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NORDTOLK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NORDTOLK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NORDTOLK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NORDTOLK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NORDTOLK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NORDTOLK_AUTO_MIGRATE" default:"false"`
}

// PushConfig configures the mobile push gateway.
type PushConfig struct {
	Endpoint       string        `envconfig:"NORDTOLK_PUSH_ENDPOINT" default:"https://onesignal.com/api/v1/notifications"`
	CustomerAppID  string        `envconfig:"NORDTOLK_PUSH_CUSTOMER_APP_ID"`
	TranslatorAppID string       `envconfig:"NORDTOLK_PUSH_TRANSLATOR_APP_ID"`
	CustomerAPIKey  string       `envconfig:"NORDTOLK_PUSH_CUSTOMER_API_KEY"`
	TranslatorAPIKey string      `envconfig:"NORDTOLK_PUSH_TRANSLATOR_API_KEY"`
	Timeout        time.Duration `envconfig:"NORDTOLK_PUSH_TIMEOUT" default:"10s"`
}

// SMSConfig configures the outbound SMS gateway.
type SMSConfig struct {
	Endpoint string        `envconfig:"NORDTOLK_SMS_ENDPOINT"`
	Username string        `envconfig:"NORDTOLK_SMS_USERNAME"`
	Password string        `envconfig:"NORDTOLK_SMS_PASSWORD"`
	From     string        `envconfig:"NORDTOLK_SMS_FROM" default:"NordTolk"`
	Timeout  time.Duration `envconfig:"NORDTOLK_SMS_TIMEOUT" default:"10s"`
}

type MailConfig struct {
	Host        string `envconfig:"NORDTOLK_MAIL_HOST"`
	Port        int    `envconfig:"NORDTOLK_MAIL_PORT" default:"587"`
	Username    string `envconfig:"NORDTOLK_MAIL_USERNAME"`
	Password    string `envconfig:"NORDTOLK_MAIL_PASSWORD"`
	FromAddress string `envconfig:"NORDTOLK_MAIL_FROM_ADDRESS" default:"noreply@nordtolk.se"`
	FromName    string `envconfig:"NORDTOLK_MAIL_FROM_NAME" default:"NordTolk"`
}

// BusinessHoursConfig bounds the window in which push notifications may be
// delivered immediately. Pushes scheduled outside it are deferred.
type BusinessHoursConfig struct {
	DayStartHour   int    `envconfig:"NORDTOLK_BUSINESS_DAY_START_HOUR" default:"9"`
	NightStartHour int    `envconfig:"NORDTOLK_BUSINESS_NIGHT_START_HOUR" default:"21"`
	Timezone       string `envconfig:"NORDTOLK_BUSINESS_TIMEZONE" default:"Europe/Stockholm"`
}

// BookingConfig carries domain tunables for the booking lifecycle.
type BookingConfig struct {
	ImmediateLeadTime    time.Duration `envconfig:"NORDTOLK_BOOKING_IMMEDIATE_LEAD_TIME" default:"5m"`
	EmergencyWindow      time.Duration `envconfig:"NORDTOLK_BOOKING_EMERGENCY_WINDOW" default:"2h"`
	CancelCutoff         time.Duration `envconfig:"NORDTOLK_BOOKING_CANCEL_CUTOFF" default:"24h"`
	AcceptRateLimit      int           `envconfig:"NORDTOLK_BOOKING_ACCEPT_RATE_LIMIT" default:"30"`
	AcceptRateWindow     time.Duration `envconfig:"NORDTOLK_BOOKING_ACCEPT_RATE_WINDOW" default:"1m"`
	ExpirySweepInterval  time.Duration `envconfig:"NORDTOLK_BOOKING_EXPIRY_SWEEP_INTERVAL" default:"1m"`
	SessionRemindLeadTime time.Duration `envconfig:"NORDTOLK_BOOKING_SESSION_REMIND_LEAD_TIME" default:"10m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NORDTOLK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"NORDTOLK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NORDTOLK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"NORDTOLK_PUBSUB_BOOKING_TOPIC" default:"nt-booking-events"`
	BookingSubscription string `envconfig:"NORDTOLK_PUBSUB_BOOKING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"NORDTOLK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"NORDTOLK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"NORDTOLK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"NORDTOLK_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	LockTTL       time.Duration `envconfig:"NORDTOLK_CRON_LOCK_TTL" default:"5m"`
	MetricsPort   string        `envconfig:"NORDTOLK_CRON_METRICS_PORT" default:"9102"`
	DisabledJobs  string        `envconfig:"NORDTOLK_CRON_DISABLED_JOBS"`
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
