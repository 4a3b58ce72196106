package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "TRUCKFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "TRUCKFLOW_APP_ENV"
	EnvPort             = "TRUCKFLOW_APP_PORT"
	EnvUpstreamBaseURL  = "TRUCKFLOW_UPSTREAM_BASE_URL"
	EnvUpstreamEmail    = "TRUCKFLOW_UPSTREAM_EMAIL"
	EnvUpstreamPassword = "TRUCKFLOW_UPSTREAM_PASSWORD"
	EnvDBDSN            = "TRUCKFLOW_DB_DSN"
	EnvDBHost           = "TRUCKFLOW_DB_HOST"
	EnvDBUser           = "TRUCKFLOW_DB_USER"
	EnvDBName           = "TRUCKFLOW_DB_NAME"
	EnvRedisURL         = "TRUCKFLOW_REDIS_URL"
	EnvFleetInterval    = "TRUCKFLOW_FLEET_REFRESH_INTERVAL"
	EnvFleetAutoRefresh = "TRUCKFLOW_FLEET_AUTO_REFRESH"
	EnvGCPProjectID     = "TRUCKFLOW_GCP_PROJECT_ID"
	EnvPubSubFleetTopic = "TRUCKFLOW_PUBSUB_FLEET_TOPIC"
	EnvPubSubEndpoint   = "TRUCKFLOW_PUBSUB_ENDPOINT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
