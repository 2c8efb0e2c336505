package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"

	// EnvPrefix is prepended to every environment override,
	// e.g. SIMWARD_DATABASE_HOST overrides database.host.
	EnvPrefix = "SIMWARD"

	AppName = "simward"
)
