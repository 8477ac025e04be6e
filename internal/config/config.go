package config

type Config interface {
	EnvConfig
	CorsConfig
	ShopifyConfig
	StoreConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetHost() string
	GetBasePath() string
	GetDistDir() string
	GetLogLevel() string
	GetLogFile() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Shopify
	Store
}

func New() Config {
	return mainConfig{}
}
