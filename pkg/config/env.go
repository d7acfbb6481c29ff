package config

const EnvPrefix = "ASSETFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "ASSETFLOW_APP_ENV"
	EnvPort        = "ASSETFLOW_APP_PORT"
	EnvDBDSN       = "ASSETFLOW_DB_DSN"
	EnvDBHost      = "ASSETFLOW_DB_HOST"
	EnvDBUser      = "ASSETFLOW_DB_USER"
	EnvDBName      = "ASSETFLOW_DB_NAME"
	EnvRedisURL    = "ASSETFLOW_REDIS_URL"
	EnvJWTSecret   = "ASSETFLOW_JWT_SECRET"
	EnvJWTIssuer   = "ASSETFLOW_JWT_ISSUER"
	EnvJWTExpMins  = "ASSETFLOW_JWT_EXPIRATION_MINUTES"
	EnvBaseLimit   = "ASSETFLOW_BILLING_BASE_EMPLOYEE_LIMIT"
	EnvStripeKey   = "ASSETFLOW_STRIPE_API_KEY"
	EnvGCPProject  = "ASSETFLOW_GCP_PROJECT_ID"
	EnvAssetsTopic = "ASSETFLOW_PUBSUB_ASSET_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
