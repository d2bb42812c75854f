package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/story-chat/internal/config"
	"github.com/omochice/story-chat/internal/session"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.KeyAPIHost, config.KeyWSPort, config.KeyRESTPort, config.KeyGraphQLPort,
		config.KeyStoryID, config.KeyRequestTimeout, config.KeyPollInterval,
		config.KeyReconnectInterval, config.KeyConnectYield,
		config.KeyLogLevel, config.KeyLogFormat, config.KeyLogFile,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("", false)
	require.NoError(t, err)

	assert.Equal(t, "STRY1", cfg.StoryID)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, session.Config{
		StoryID:           "STRY1",
		ReconnectInterval: 2 * time.Second,
		ConnectYield:      100 * time.Millisecond,
	}, cfg.Session)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("API_HOST=http://localhost\nAPI_WS_PORT=3001\nSTORY_ID=STRY7\nCHAT_POLL_INTERVAL=500ms\n"), 0o600))

	cfg, err := config.Load(file, true)
	require.NoError(t, err)

	addr, err := cfg.Address(config.TransportSocket)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001", addr)
	assert.Equal(t, "STRY7", cfg.Session.StoryID)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.PollInterval)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)

	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("API_HOST=http://from-file\nAPI_REST_PORT=3002\n"), 0o600))
	t.Setenv(config.KeyAPIHost, "http://from-env")

	cfg, err := config.Load(file, true)
	require.NoError(t, err)

	addr, err := cfg.Address(config.TransportREST)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:3002", addr)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.env")

	_, err := config.Load(missing, false)
	assert.NoError(t, err)

	_, err = config.Load(missing, true)
	assert.Error(t, err)
}

func TestConfig_Address(t *testing.T) {
	cfg := &config.Config{APIHost: "http://localhost", WSPort: "3001", RESTPort: "3002", GraphQLPort: "3003"}

	tests := []struct {
		transport config.Transport
		want      string
	}{
		{transport: config.TransportSocket, want: "http://localhost:3001"},
		{transport: config.TransportREST, want: "http://localhost:3002"},
		{transport: config.TransportGraphQL, want: "http://localhost:3003"},
	}
	for _, tt := range tests {
		t.Run(string(tt.transport), func(t *testing.T) {
			got, err := cfg.Address(tt.transport)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&config.Config{}).Address(config.TransportSocket)
	assert.ErrorContains(t, err, "API_HOST")

	_, err = (&config.Config{APIHost: "http://localhost"}).Address(config.TransportGraphQL)
	assert.ErrorContains(t, err, "API_GRAPHQL_PORT")
}
