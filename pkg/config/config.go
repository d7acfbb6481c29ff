package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Billing       BillingConfig
	Workflow      WorkflowConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Eventing      EventingConfig
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
	Env          string   `envconfig:"ASSETFLOW_APP_ENV" required:"true"`
	Port         string   `envconfig:"ASSETFLOW_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ASSETFLOW_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"ASSETFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"ASSETFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ASSETFLOW_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ASSETFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ASSETFLOW_DB_DSN"`
	Driver string `envconfig:"ASSETFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ASSETFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"ASSETFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASSETFLOW_DB_USER"`
	LegacyPassword string `envconfig:"ASSETFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASSETFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASSETFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASSETFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSETFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSETFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSETFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ASSETFLOW_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSETFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASSETFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"ASSETFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSETFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSETFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSETFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSETFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSETFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSETFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ASSETFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ASSETFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ASSETFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	TokenWindow      time.Duration `envconfig:"ASSETFLOW_AUTH_RATE_LIMIT_TOKEN_WINDOW" default:"1m"`
	TokenEmailLimit  int           `envconfig:"ASSETFLOW_AUTH_RATE_LIMIT_TOKEN_EMAIL_LIMIT" default:"10"`
	TokenIPLimit     int           `envconfig:"ASSETFLOW_AUTH_RATE_LIMIT_TOKEN_IP_LIMIT" default:"30"`
	SignupWindow     time.Duration `envconfig:"ASSETFLOW_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"ASSETFLOW_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"ASSETFLOW_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASSETFLOW_AUTO_MIGRATE" default:"false"`
}

// BillingConfig controls the package upgrade flow.
type BillingConfig struct {
	BaseEmployeeLimit int           `envconfig:"ASSETFLOW_BILLING_BASE_EMPLOYEE_LIMIT" default:"5"`
	DefaultPackage    string        `envconfig:"ASSETFLOW_BILLING_DEFAULT_PACKAGE" default:"basic"`
	Currency          string        `envconfig:"ASSETFLOW_BILLING_CURRENCY" default:"usd"`
	SuccessURL        string        `envconfig:"ASSETFLOW_BILLING_SUCCESS_URL" default:"http://localhost:3000/payment/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL         string        `envconfig:"ASSETFLOW_BILLING_CANCEL_URL" default:"http://localhost:3000/payment/cancel"`
	ConfirmLockTTL    time.Duration `envconfig:"ASSETFLOW_BILLING_CONFIRM_LOCK_TTL" default:"2m"`
}

// WorkflowConfig tunes the asset assignment flows.
type WorkflowConfig struct {
	AssignLockTTL time.Duration `envconfig:"ASSETFLOW_WORKFLOW_ASSIGN_LOCK_TTL" default:"30s"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"ASSETFLOW_STRIPE_API_KEY"`
	SigningSecret string        `envconfig:"ASSETFLOW_STRIPE_SIGNING_SECRET"`
	Env           string        `envconfig:"ASSETFLOW_STRIPE_ENV" default:"test"`
	WebhookDedupe time.Duration `envconfig:"ASSETFLOW_STRIPE_WEBHOOK_DEDUPE_TTL" default:"72h"`
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
	ProjectID              string `envconfig:"ASSETFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ASSETFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASSETFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

// ClientOptions picks inline JSON credentials over a key file. With neither
// set, Google clients fall back to application default credentials.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	if js := strings.TrimSpace(g.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if file := strings.TrimSpace(g.ApplicationCredentials); file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

type PubSubConfig struct {
	AssetEventsTopic      string `envconfig:"ASSETFLOW_PUBSUB_ASSET_EVENTS_TOPIC" default:"af-asset-events"`
	BillingTopic          string `envconfig:"ASSETFLOW_PUBSUB_BILLING_TOPIC" default:"af-billing-events"`
	AnalyticsSubscription string `envconfig:"ASSETFLOW_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"af-analytics"`
	MaxOutstanding        int    `envconfig:"ASSETFLOW_PUBSUB_MAX_OUTSTANDING" default:"100"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"ASSETFLOW_BIGQUERY_DATASET" default:"assetflow"`
	AssetEventsTable string `envconfig:"ASSETFLOW_BIGQUERY_ASSET_EVENTS_TABLE" default:"asset_events"`
	CreateTables     bool   `envconfig:"ASSETFLOW_BIGQUERY_CREATE_TABLES" default:"false"`
	InsertBatchSize  int    `envconfig:"ASSETFLOW_BIGQUERY_INSERT_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ASSETFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ASSETFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ASSETFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"ASSETFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"ASSETFLOW_CRON_INTERVAL" default:"24h"`
	OutboxRetentionDays int           `envconfig:"ASSETFLOW_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	OutboxPurgeBatch    int           `envconfig:"ASSETFLOW_CRON_OUTBOX_PURGE_BATCH" default:"500"`
	DeadLetterWindow    time.Duration `envconfig:"ASSETFLOW_CRON_DEAD_LETTER_WINDOW" default:"24h"`
	JobTimeout          time.Duration `envconfig:"ASSETFLOW_CRON_JOB_TIMEOUT" default:"30m"`
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
