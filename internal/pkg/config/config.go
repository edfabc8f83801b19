package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// insecureSecret is the well-known placeholder that must never sign tokens.
const insecureSecret = "fallback-secret-key"

const minSecretBytes = 32

type Config struct {
	Port               string `env:"PORT,                 default=8080"`
	Env                string `env:"ENV,                  default=development"`
	LogLevel           string `env:"LOG_LEVEL,            default=info"`
	JWTSecret          string `env:"JWT_SECRET,           required"`
	ExposeErrorDetails bool   `env:"EXPOSE_ERROR_DETAILS, default=true"`
	StoreDriver        string `env:"STORE_DRIVER,         default=mongo"`
	ServiceName        string `env:"SERVICE_NAME,         default=mfg-ops-auth"`
	OTLPEndpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Mongo MongoConfig
	SQL   SQLConfig
	Redis RedisConfig
	Login LoginConfig
	Seed  SeedConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=mfg_ops"`
}

type SQLConfig struct {
	DSN string `env:"SQL_DSN"`
}

// RedisConfig configures the login limiter. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type LoginConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=10"`
	Window      time.Duration `env:"LOGIN_WINDOW,       default=15m"`
	HashWorkers int           `env:"HASH_WORKERS,       default=0"`
}

// SeedConfig creates the first Admin at startup when both fields are set.
type SeedConfig struct {
	AdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch {
	case c.JWTSecret == insecureSecret:
		errs = append(errs, errors.New("JWT_SECRET must not be the insecure default"))
	case len(c.JWTSecret) < minSecretBytes:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretBytes))
	}

	switch c.StoreDriver {
	case "mongo":
	case "postgres", "mysql":
		if c.SQL.DSN == "" {
			errs = append(errs, fmt.Errorf("SQL_DSN is required when STORE_DRIVER=%s", c.StoreDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}

	if c.Login.MaxAttempts < 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must not be negative"))
	}
	if (c.Seed.AdminEmail == "") != (c.Seed.AdminPassword == "") {
		errs = append(errs, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}
