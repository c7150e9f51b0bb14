package config

const (
	// EnvPrefix is the envconfig prefix shared by every service binary.
	EnvPrefix = "ATTEST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ATTEST_DB_DSN"
	EnvDBHost = "ATTEST_DB_HOST"
	EnvDBUser = "ATTEST_DB_USER"
	EnvDBName = "ATTEST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
