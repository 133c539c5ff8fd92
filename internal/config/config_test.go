package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/vigil/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
listen_addr: ":9090"
base_url: "https://vigil.example.com"
log_json: true
twilio:
  account_sid: "AC123"
  auth_token: "secret"
  from: "+15550009999"
oracle:
  api_key: "gsk_test"
  timeout_seconds: 5
call:
  gather_timeout_seconds: 8
  notify_failure_escalates: true
escalation:
  retries: 2
  contacts:
    - name: "Sam"
      phone: "+15550002222"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "https://vigil.example.com", cfg.BaseURL)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 5, cfg.Oracle.TimeoutSeconds)
	assert.Equal(t, 8, cfg.Call.GatherTimeoutSeconds)
	assert.True(t, cfg.Call.NotifyFailureEscalates)
	assert.Equal(t, 2, cfg.Escalation.Retries)
	require.Len(t, cfg.Escalation.Contacts, 1)
	assert.Equal(t, "+15550002222", cfg.Escalation.Contacts[0].Phone)

	// Untouched knobs keep their defaults.
	assert.Equal(t, 1, cfg.Call.NumDigits)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TWILIO_AUTH", "env-secret")
	t.Setenv("BASE_URL", "https://override.example.com")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Twilio.AuthToken)
	assert.Equal(t, "https://override.example.com", cfg.BaseURL)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	// No file, no env: validation must name what is missing.
	for _, key := range []string{"BASE_URL", "TWILIO_SID", "TWILIO_AUTH", "TWILIO_FROM", "GROQ_API_KEY"} {
		t.Setenv(key, "")
	}

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration")
}
