package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	RepositoryDriverPostgres = "postgres"
	RepositoryDriverInMemory = "inmemory"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env        string `env:"ENV" env-required:"true"`
	HTTP       HTTPConfig
	Postgres   PostgresConfig
	JWT        JWTConfig
	Identity   IdentityAuthorityConfig
	Repository RepositoryConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	TasksPort       string        `env:"HTTP_TASKS_PORT" env-default:"3000"`
	IdentityPort    string        `env:"HTTP_IDENTITY_PORT" env-default:"3001"`
	AuthPort        string        `env:"HTTP_AUTH_PORT" env-default:"3002"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-default:"localhost"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-default:"postgres"`
	Password       string        `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	Database       string        `env:"POSTGRES_DATABASE" env-default:"taskmesh"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
}

type JWTConfig struct {
	Issuer         string        `env:"JWT_ISSUER" env-default:"taskmesh"`
	SigningKey     string        `env:"JWT_SIGNING_KEY" env-required:"true"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"1h"`
}

type IdentityAuthorityConfig struct {
	// BaseURL points at the identity service API root,
	// e.g. http://identity:3001/api/v1
	BaseURL string `env:"IDENTITY_BASE_URL" env-default:"http://localhost:3001/api/v1"`
	// RequestTimeout bounds every outbound lookup. The upstream contract
	// has no timeout of its own, so a hung lookup would otherwise hang
	// the calling request.
	RequestTimeout time.Duration `env:"IDENTITY_REQUEST_TIMEOUT" env-default:"5s"`
}

type RepositoryConfig struct {
	Driver string `env:"REPOSITORY_DRIVER" env-default:"postgres"`
}
