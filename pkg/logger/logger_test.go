package logger

import (
	"os"
	"path/filepath"
	"testing"

	"accessctl/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerBeforeInitialize(t *testing.T) {
	require.NotNil(t, GetLogger())
}

func TestInitializeWritesRotatedFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cfg := &config.Config{Log: config.LogConfig{
		Level:    "debug",
		FilePath: path,
		MaxSize:  1,
		Format:   "json",
	}}

	require.NoError(t, Initialize(cfg))
	assert.Equal(t, logrus.DebugLevel, GetLogger().GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, GetLogger().Formatter)

	GetLogger().WithField("user_id", 7).Info("login succeeded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_id":7`)
}

func TestInitializeFallsBackToInfo(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	require.NoError(t, Initialize(&config.Config{Log: config.LogConfig{Level: "loud", Format: "text"}}))
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, GetLogger().Formatter)
}

func TestInitializeRedactsCredentials(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Initialize(&config.Config{Log: config.LogConfig{Level: "info", FilePath: path, Format: "json"}}))

	GetLogger().WithFields(logrus.Fields{
		"username":         "superadmin",
		"password":         "superadmin123",
		"selection_ticket": "eyJhbGciOi",
	}).Info("login")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "superadmin")
	assert.NotContains(t, string(data), "superadmin123")
	assert.NotContains(t, string(data), "eyJhbGciOi")
	assert.Contains(t, string(data), redacted)
}
