package config

type Config interface {
	EnvConfig
	APIConfig
	IdentityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	API
	Identity
}

func New() Config {
	return mainConfig{}
}
