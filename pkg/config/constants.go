package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CALLINSIGHTS_DB_DSN"
	EnvDBHost = "CALLINSIGHTS_DB_HOST"
	EnvDBUser = "CALLINSIGHTS_DB_USER"
	EnvDBName = "CALLINSIGHTS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
