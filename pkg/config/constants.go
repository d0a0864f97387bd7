package config

const (
	EnvPrefix = "VENDOROPS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:vendorops.db?_busy_timeout=5000&_journal_mode=WAL"
)

const (
	EnvAppEnv    = "VENDOROPS_APP_ENV"
	EnvPort      = "VENDOROPS_APP_PORT"
	EnvDBDSN     = "VENDOROPS_DB_DSN"
	EnvDBHost    = "VENDOROPS_DB_HOST"
	EnvDBUser    = "VENDOROPS_DB_USER"
	EnvDBName    = "VENDOROPS_DB_NAME"
	EnvRedisURL  = "VENDOROPS_REDIS_URL"
	EnvJWTSecret = "VENDOROPS_JWT_SECRET"
	EnvJWTIssuer = "VENDOROPS_JWT_ISSUER"
	EnvUseSQLite = "VENDOROPS_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
