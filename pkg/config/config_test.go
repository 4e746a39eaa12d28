package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "env_variables.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCompleteFile(t *testing.T) {
	path := writeEnvFile(t, `FROM_EMAIL=relay@example.com
TO_EMAIL=ops@example.com
SMTP_SERVER=smtp.example.com
EMAIL_PASSWORD=s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "relay@example.com", cfg.FromAddress)
	assert.Equal(t, "ops@example.com", cfg.ToAddress)
	assert.Equal(t, "smtp.example.com", cfg.RelayHost)
	assert.Equal(t, DefaultSubmissionPort, cfg.RelayPort)
	assert.Equal(t, "s3cret", cfg.Credential)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, "smtp.example.com:587", cfg.RelayAddr())
}

func TestLoadHostWithPortSuffix(t *testing.T) {
	path := writeEnvFile(t, `FROM_EMAIL=a@b.c
TO_EMAIL=d@e.f
SMTP_SERVER=smtp.example.com:2525
EMAIL_PASSWORD=pw
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.RelayHost)
	assert.Equal(t, 2525, cfg.RelayPort)
}

func TestLoadExplicitPortWinsOverSuffix(t *testing.T) {
	path := writeEnvFile(t, `FROM_EMAIL=a@b.c
TO_EMAIL=d@e.f
SMTP_SERVER=smtp.example.com:2525
SMTP_PORT=465
EMAIL_PASSWORD=pw
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 465, cfg.RelayPort)
}

func TestLoadMissingKeysListsAll(t *testing.T) {
	path := writeEnvFile(t, `SMTP_SERVER=smtp.example.com
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_PASSWORD")
	assert.Contains(t, err.Error(), "FROM_EMAIL")
	assert.Contains(t, err.Error(), "TO_EMAIL")
	assert.NotContains(t, err.Error(), "SMTP_SERVER,")
}

func TestLoadEmptyValueCountsAsMissing(t *testing.T) {
	path := writeEnvFile(t, `FROM_EMAIL=a@b.c
TO_EMAIL=
SMTP_SERVER=smtp.example.com
EMAIL_PASSWORD=pw
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TO_EMAIL")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestLoadInvalidPort(t *testing.T) {
	path := writeEnvFile(t, `FROM_EMAIL=a@b.c
TO_EMAIL=d@e.f
SMTP_SERVER=smtp.example.com
SMTP_PORT=not-a-port
EMAIL_PASSWORD=pw
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
}

func TestLoadOptionalPushgateway(t *testing.T) {
	path := writeEnvFile(t, `FROM_EMAIL=a@b.c
TO_EMAIL=d@e.f
SMTP_SERVER=smtp.example.com
EMAIL_PASSWORD=pw
PUSHGATEWAY_URL=http://push.example.com:9091
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://push.example.com:9091", cfg.PushgatewayURL)
}
