package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// devJWTSecret keeps local development friction-free. Production refuses to
// start without an explicit secret.
const devJWTSecret = "tillsuite-dev-secret-do-not-use-in-prod"

type Config struct {
	// Issuer is the external base URL of this service; it becomes the iss
	// claim of every minted token and the base of the discovery document.
	Issuer string `env:"AUTH_ISSUER" envDefault:"http://localhost:8080"`

	// JWTSecret is the HS256 shared secret. Required outside dev.
	JWTSecret string `env:"AUTH_JWT_SECRET"`

	// ClientsFile is the YAML client catalog loaded at startup.
	ClientsFile string `env:"AUTH_CLIENTS_FILE" envDefault:"clients.yaml"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"tillsuite.db"`

	// DevHosts are hostnames excluded from subdomain tenant resolution so
	// local traffic falls through to the explicit headers.
	DevHosts []string `env:"AUTH_DEV_HOSTS" envSeparator:"," envDefault:"lvh.me"`

	CodeTTL    time.Duration `env:"AUTH_CODE_TTL" envDefault:"10m"`
	AccessTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"720h"`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != "dev" {
			return Config{}, errors.New("AUTH_JWT_SECRET is required outside dev")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}
