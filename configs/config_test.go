package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/retrieve")
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("JWT_LIFETIME", "")
	t.Setenv("CHROME_POSTERS", "")
	t.Setenv("FRONTEND_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.ChromePosters)
	assert.Equal(t, "http://127.0.0.1:5173", cfg.FrontendURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/retrieve")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_LIFETIME", "15m")
	t.Setenv("CORS_ORIGINS", " https://a.example.com , ,https://b.example.com")
	t.Setenv("CHROME_POSTERS", "true")
	t.Setenv("FRONTEND_URL", "https://retrieve.example.com/")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 15*time.Minute, cfg.JWTLifetime)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.ChromePosters)
	assert.Equal(t, "https://retrieve.example.com", cfg.FrontendURL)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/retrieve")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	_, err = Load()
	assert.Error(t, err)
}
