package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SERVER_MODE", "debug")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.JWT.TokenDuration)
	assert.Equal(t, 5*time.Minute, cfg.JWT.SelectionDuration)
	assert.Equal(t, DevSecretKey, cfg.JWT.SecretKey)
	assert.True(t, cfg.JWT.UsingDevSecret)
	assert.Equal(t, PolicyMenu, cfg.Auth.Policy)
	assert.Equal(t, []string{"Super Admin"}, cfg.Auth.AllowedRoles)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoadConfigReleaseRequiresSecret(t *testing.T) {
	t.Setenv("SERVER_MODE", "release")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET_KEY", "prod-secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.JWT.UsingDevSecret)
	assert.Equal(t, "prod-secret", cfg.JWT.SecretKey)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "k")
	t.Setenv("JWT_TOKEN_DURATION", "2h")
	t.Setenv("AUTH_POLICY", "ROLE_NAME")
	t.Setenv("AUTH_ALLOWED_ROLES", "Super Admin, Manager ,")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TokenDuration)
	assert.Equal(t, PolicyRoleName, cfg.Auth.Policy)
	assert.Equal(t, []string{"Super Admin", "Manager"}, cfg.Auth.AllowedRoles)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "JWT_TOKEN_DURATION", "tomorrow"},
		{"negative duration", "JWT_SELECTION_DURATION", "-1m"},
		{"unknown policy", "AUTH_POLICY", "abac"},
		{"unknown driver", "DB_DRIVER", "oracle"},
		{"bcrypt cost too low", "AUTH_BCRYPT_COST", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "k")
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
