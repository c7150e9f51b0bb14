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
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"ATTEST_APP_ENV" required:"true"`
	Port         string `envconfig:"ATTEST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ATTEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ATTEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ATTEST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ATTEST_DB_DSN"`
	Driver string `envconfig:"ATTEST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ATTEST_DB_HOST"`
	LegacyPort     int    `envconfig:"ATTEST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ATTEST_DB_USER"`
	LegacyPassword string `envconfig:"ATTEST_DB_PASSWORD"`
	LegacyName     string `envconfig:"ATTEST_DB_NAME"`
	LegacySSLMode  string `envconfig:"ATTEST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ATTEST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ATTEST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ATTEST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATTEST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATTEST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ATTEST_REDIS_ADDR"`
	Password     string        `envconfig:"ATTEST_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATTEST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATTEST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATTEST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATTEST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATTEST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATTEST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// WebhookConfig bounds inbound event processing. MaxEventAge and MaxClockSkew
// define the freshness window; deliveries outside it are rejected.
type WebhookConfig struct {
	MaxBodyBytes   int64         `envconfig:"ATTEST_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
	MaxEventAge    time.Duration `envconfig:"ATTEST_WEBHOOK_MAX_EVENT_AGE" default:"72h"`
	MaxClockSkew   time.Duration `envconfig:"ATTEST_WEBHOOK_MAX_CLOCK_SKEW" default:"10m"`
	IdempotencyTTL time.Duration `envconfig:"ATTEST_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
	HandleTimeout  time.Duration `envconfig:"ATTEST_WEBHOOK_HANDLE_TIMEOUT" default:"15s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ATTEST_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ATTEST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ATTEST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AuditTopic        string `envconfig:"ATTEST_PUBSUB_AUDIT_TOPIC" default:"attest-audit-events"`
	AuditSubscription string `envconfig:"ATTEST_PUBSUB_AUDIT_SUBSCRIPTION"`
}

// BigQueryConfig locates the audit archive dataset. The audit worker refuses
// to start when the dataset or table is missing.
type BigQueryConfig struct {
	Dataset          string `envconfig:"ATTEST_BIGQUERY_DATASET"`
	AuditEventsTable string `envconfig:"ATTEST_BIGQUERY_AUDIT_EVENTS_TABLE" default:"audit_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ATTEST_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ATTEST_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ATTEST_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig tunes the distribution retry worker. MinAttestationAge keeps the
// job from racing a webhook request that is still inside its transaction.
type CronConfig struct {
	Interval          time.Duration `envconfig:"ATTEST_CRON_INTERVAL" default:"15m"`
	MinAttestationAge time.Duration `envconfig:"ATTEST_CRON_MIN_ATTESTATION_AGE" default:"10m"`
	RetryBatchSize    int           `envconfig:"ATTEST_CRON_RETRY_BATCH_SIZE" default:"100"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ATTEST_AUTO_MIGRATE" default:"false"`
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
