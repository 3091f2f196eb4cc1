package config

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port            string        `env:"PORT,             default=5000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS,     default=http://localhost:5173"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For is honoured.
	// Empty means the socket address is the client address.
	TrustedProxies  []string      `env:"TRUSTED_PROXIES"`

	JWT         JWTConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Movements   MovementsConfig
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET, required"`
	TTL    time.Duration `env:"JWT_TTL,    default=168h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=sweet_shop"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// RateLimitConfig bounds register and login attempts per client IP.
type RateLimitConfig struct {
	Auth   int           `env:"AUTH_RATE_LIMIT,  default=20"`
	Window time.Duration `env:"AUTH_RATE_WINDOW, default=1m"`
}

type IdempotencyConfig struct {
	TTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

type MovementsConfig struct {
	Workers int `env:"MOVEMENT_WORKERS, default=4"`
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if cfg.Movements.Workers <= 0 {
		return nil, fmt.Errorf("config: MOVEMENT_WORKERS must be positive, got %d", cfg.Movements.Workers)
	}
	for _, cidr := range cfg.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
	}
	return &cfg, nil
}
