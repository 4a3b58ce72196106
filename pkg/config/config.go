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
	Upstream     UpstreamConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Fleet        FleetConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRUCKFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"TRUCKFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TRUCKFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRUCKFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRUCKFLOW_SERVICE_KIND" default:"api"`
}

// UpstreamConfig points at the TruckFlow REST API that owns every dispatch entity.
type UpstreamConfig struct {
	BaseURL  string        `envconfig:"TRUCKFLOW_UPSTREAM_BASE_URL" required:"true"`
	Timeout  time.Duration `envconfig:"TRUCKFLOW_UPSTREAM_TIMEOUT" default:"15s"`
	Email    string        `envconfig:"TRUCKFLOW_UPSTREAM_EMAIL"`
	Password string        `envconfig:"TRUCKFLOW_UPSTREAM_PASSWORD"`
	OrgID    string        `envconfig:"TRUCKFLOW_UPSTREAM_ORG_ID"`
	// TokenTTL applies when the upstream token carries no readable exp claim.
	TokenTTL  time.Duration `envconfig:"TRUCKFLOW_UPSTREAM_TOKEN_TTL" default:"1h"`
	TokenSkew time.Duration `envconfig:"TRUCKFLOW_UPSTREAM_TOKEN_SKEW" default:"1m"`
}

// HasServiceCredentials reports whether the worker can log in on its own.
func (u UpstreamConfig) HasServiceCredentials() bool {
	return strings.TrimSpace(u.Email) != "" && u.Password != ""
}

func (u *UpstreamConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(u.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvUpstreamBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvUpstreamBaseURL, u.BaseURL)
	}
	u.BaseURL = strings.TrimRight(parsed.String(), "/")
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"TRUCKFLOW_DB_DSN"`
	Driver string `envconfig:"TRUCKFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRUCKFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"TRUCKFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRUCKFLOW_DB_USER"`
	LegacyPassword string `envconfig:"TRUCKFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRUCKFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRUCKFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRUCKFLOW_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"TRUCKFLOW_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"TRUCKFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRUCKFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRUCKFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRUCKFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"TRUCKFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRUCKFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRUCKFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRUCKFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRUCKFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRUCKFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRUCKFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CORSConfig lists the dashboard origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TRUCKFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRUCKFLOW_AUTO_MIGRATE" default:"false"`
}

// FleetConfig drives the scheduled fleet location refresh.
type FleetConfig struct {
	RefreshInterval  time.Duration `envconfig:"TRUCKFLOW_FLEET_REFRESH_INTERVAL" default:"30s"`
	AutoRefresh      bool          `envconfig:"TRUCKFLOW_FLEET_AUTO_REFRESH" default:"true"`
	EventConcurrency int           `envconfig:"TRUCKFLOW_FLEET_EVENT_CONCURRENCY" default:"8"`
	SnapshotTTL      time.Duration `envconfig:"TRUCKFLOW_FLEET_SNAPSHOT_TTL" default:"5m"`
	LockTTL          time.Duration `envconfig:"TRUCKFLOW_FLEET_LOCK_TTL" default:"2m"`
	GeocodeMissing   bool          `envconfig:"TRUCKFLOW_FLEET_GEOCODE_MISSING" default:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TRUCKFLOW_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	FleetTopic string `envconfig:"TRUCKFLOW_PUBSUB_FLEET_TOPIC"`
	// Endpoint pins a regional endpoint, e.g. us-east1-pubsub.googleapis.com:443.
	Endpoint string `envconfig:"TRUCKFLOW_PUBSUB_ENDPOINT"`
}

// Enabled reports whether fleet snapshots should be published.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(p.FleetTopic) != "" && strings.TrimSpace(gcp.ProjectID) != ""
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
