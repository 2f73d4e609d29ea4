package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:      "8314",
		JWTSecret: "a-perfectly-reasonable-development-secret",
		Env:       "development",
	}
}

func TestValidate_Development(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestValidate_MissingJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate_ProductionRejectsDefaultSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "your-secret-key-change-in-production"
	cfg.DBPassword = "s0mething-strong-enough"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default value")
}

func TestValidate_ProductionRejectsShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "short"
	cfg.DBPassword = "s0mething-strong-enough"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestValidate_ProductionRejectsWeakDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "this-secret-is-long-enough-for-production-use"
	cfg.DBPassword = "password"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidate_ProductionHappyPath(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "this-secret-is-long-enough-for-production-use"
	cfg.DBPassword = "s0mething-strong-enough"
	cfg.DBSSLMode = "require"
	require.NoError(t, cfg.Validate())
}
