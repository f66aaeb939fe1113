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
	FeatureFlags FeatureFlagsConfig
	GenAI        GenAIConfig
	Credits      CreditsConfig
	Monitor      MonitorConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"REELBRAND_APP_ENV" required:"true"`
	Port         string `envconfig:"REELBRAND_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REELBRAND_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REELBRAND_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"REELBRAND_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"REELBRAND_DB_DSN"`
	Driver string `envconfig:"REELBRAND_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REELBRAND_DB_HOST"`
	LegacyPort     int    `envconfig:"REELBRAND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REELBRAND_DB_USER"`
	LegacyPassword string `envconfig:"REELBRAND_DB_PASSWORD"`
	LegacyName     string `envconfig:"REELBRAND_DB_NAME"`
	LegacySSLMode  string `envconfig:"REELBRAND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REELBRAND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REELBRAND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REELBRAND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REELBRAND_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REELBRAND_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REELBRAND_REDIS_ADDR"`
	Password     string        `envconfig:"REELBRAND_REDIS_PASSWORD"`
	DB           int           `envconfig:"REELBRAND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REELBRAND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REELBRAND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REELBRAND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REELBRAND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REELBRAND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"REELBRAND_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"REELBRAND_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"REELBRAND_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"REELBRAND_AUTO_MIGRATE" default:"false"`
}

// GenAIConfig holds the endpoints and credentials for the external
// generative services the pipeline depends on.
type GenAIConfig struct {
	TextBaseURL  string        `envconfig:"REELBRAND_GENAI_TEXT_BASE_URL" required:"true"`
	TextAPIKey   string        `envconfig:"REELBRAND_GENAI_TEXT_API_KEY"`
	ImageBaseURL string        `envconfig:"REELBRAND_GENAI_IMAGE_BASE_URL" required:"true"`
	ImageAPIKey  string        `envconfig:"REELBRAND_GENAI_IMAGE_API_KEY"`
	VideoBaseURL string        `envconfig:"REELBRAND_GENAI_VIDEO_BASE_URL" required:"true"`
	VideoAPIKey  string        `envconfig:"REELBRAND_GENAI_VIDEO_API_KEY"`
	MergeBaseURL string        `envconfig:"REELBRAND_GENAI_MERGE_BASE_URL" required:"true"`
	MergeAPIKey  string        `envconfig:"REELBRAND_GENAI_MERGE_API_KEY"`
	HTTPTimeout  time.Duration `envconfig:"REELBRAND_GENAI_HTTP_TIMEOUT" default:"30s"`
	TextTimeout  time.Duration `envconfig:"REELBRAND_GENAI_TEXT_TIMEOUT" default:"120s"`
}

type CreditsConfig struct {
	SegmentedRatePerSecond string `envconfig:"REELBRAND_CREDITS_SEGMENTED_RATE" default:"2.5"`
	SingleRatePerSecond    string `envconfig:"REELBRAND_CREDITS_SINGLE_RATE" default:"1.5"`
}

type MonitorConfig struct {
	Interval time.Duration `envconfig:"REELBRAND_MONITOR_INTERVAL" default:"30s"`
	LockTTL  time.Duration `envconfig:"REELBRAND_MONITOR_LOCK_TTL" default:"2m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"REELBRAND_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"REELBRAND_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"REELBRAND_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ProjectEventsTopic        string `envconfig:"REELBRAND_PUBSUB_PROJECT_EVENTS_TOPIC" default:"rb-project-events"`
	ProjectEventsSubscription string `envconfig:"REELBRAND_PUBSUB_PROJECT_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"REELBRAND_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"REELBRAND_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"REELBRAND_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
