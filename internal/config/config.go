package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string        `env:"DATABASE_URL,required"`
	JWTSecret   string        `env:"JWT_SECRET,required"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port        int           `env:"PORT" envDefault:"8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"production"`

	PlatformFeeRate float64       `env:"PLATFORM_FEE_RATE" envDefault:"0.02"`
	DBCallTimeout   time.Duration `env:"DB_CALL_TIMEOUT" envDefault:"3s"`

	RedisURL            string        `env:"REDIS_URL"`
	RateLimitAuthMax    int           `env:"RATE_LIMIT_AUTH_MAX" envDefault:"10"`
	RateLimitAuthWindow time.Duration `env:"RATE_LIMIT_AUTH_WINDOW" envDefault:"1m"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"10m"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	// Written so NaN fails too.
	if !(c.PlatformFeeRate >= 0 && c.PlatformFeeRate < 1) {
		return fmt.Errorf("PLATFORM_FEE_RATE=%v: must be in [0, 1)", c.PlatformFeeRate)
	}
	if c.DBCallTimeout <= 0 {
		return fmt.Errorf("DB_CALL_TIMEOUT must be positive")
	}
	if c.RateLimitAuthMax <= 0 || c.RateLimitAuthWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_AUTH_MAX and RATE_LIMIT_AUTH_WINDOW must be positive")
	}
	return nil
}
