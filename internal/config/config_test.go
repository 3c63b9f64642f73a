package config

import (
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test@localhost/test")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.02, cfg.PlatformFeeRate)
	assert.Equal(t, 3*time.Second, cfg.DBCallTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsNaNFeeRate(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test@localhost/test")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PLATFORM_FEE_RATE", "NaN")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLATFORM_FEE_RATE")
}

func TestValidate(t *testing.T) {
	base := Config{
		PlatformFeeRate:     0.02,
		DBCallTimeout:       time.Second,
		RateLimitAuthMax:    10,
		RateLimitAuthWindow: time.Minute,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero fee rate", mutate: func(c *Config) { c.PlatformFeeRate = 0 }},
		{name: "fee rate of one", mutate: func(c *Config) { c.PlatformFeeRate = 1 }, wantErr: true},
		{name: "negative fee rate", mutate: func(c *Config) { c.PlatformFeeRate = -0.01 }, wantErr: true},
		{name: "NaN fee rate", mutate: func(c *Config) { c.PlatformFeeRate = math.NaN() }, wantErr: true},
		{name: "infinite fee rate", mutate: func(c *Config) { c.PlatformFeeRate = math.Inf(1) }, wantErr: true},
		{name: "zero call timeout", mutate: func(c *Config) { c.DBCallTimeout = 0 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitAuthMax = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
