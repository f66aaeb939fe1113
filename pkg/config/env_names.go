package config

// EnvPrefix is passed to envconfig; individual fields carry the full
// REELBRAND_* names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv   = "REELBRAND_APP_ENV"
	EnvPort     = "REELBRAND_APP_PORT"
	EnvDBDSN    = "REELBRAND_DB_DSN"
	EnvDBHost   = "REELBRAND_DB_HOST"
	EnvDBUser   = "REELBRAND_DB_USER"
	EnvDBName   = "REELBRAND_DB_NAME"
	EnvRedisURL = "REELBRAND_REDIS_URL"

	EnvJWTSecret = "REELBRAND_JWT_SECRET"
	EnvJWTIssuer = "REELBRAND_JWT_ISSUER"

	EnvGenAITextBaseURL  = "REELBRAND_GENAI_TEXT_BASE_URL"
	EnvGenAIImageBaseURL = "REELBRAND_GENAI_IMAGE_BASE_URL"
	EnvGenAIVideoBaseURL = "REELBRAND_GENAI_VIDEO_BASE_URL"
	EnvGenAIMergeBaseURL = "REELBRAND_GENAI_MERGE_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
