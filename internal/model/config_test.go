package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv pins the required settings so host environment state
// cannot leak into the test.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NEXUS_URL", "https://nexus.example.com/")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BOT_SECRET_WORDS", "some mnemonic words")
	t.Setenv("BOT_PUBLIC_KEY", "ybndrfg8e")
	t.Setenv("HOMESERVER_URL", "")
	t.Setenv("TESTNET", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("LOG_LEVEL", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://nexus.example.com", cfg.NexusURL, "trailing slash trimmed")
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, mainnetHomeserver, cfg.HomeserverURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.JournalDBPath)
}

func TestLoadConfig_TestnetHomeserver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TESTNET", "true")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.True(t, cfg.Testnet)
	assert.Equal(t, testnetHomeserver, cfg.HomeserverURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOMESERVER_URL", "http://localhost:8080/")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.HomeserverURL)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
}

func TestLoadConfig_KeyringFallback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("BOT_SECRET_WORDS", "")

	lookup := func(key string) (string, error) {
		switch key {
		case "openai_api_key":
			return "sk-from-keyring", nil
		case "bot_secret_words":
			return "words from keyring", nil
		default:
			return "", fmt.Errorf("unknown credential %q", key)
		}
	}

	cfg, err := LoadConfig(lookup)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-keyring", cfg.OpenAIKey)
	assert.Equal(t, "words from keyring", cfg.SecretWords)
}

func TestLoadConfig_EnvWinsOverKeyring(t *testing.T) {
	setRequiredEnv(t)

	lookup := func(key string) (string, error) {
		return "from-keyring", nil
	}

	cfg, err := LoadConfig(lookup)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIKey)
}

func TestConfig_ValidateReportsAllMissing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NEXUS_URL", "")
	t.Setenv("BOT_PUBLIC_KEY", "")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEXUS_URL")
	assert.Contains(t, err.Error(), "BOT_PUBLIC_KEY")
	assert.NotContains(t, err.Error(), "OPENAI_API_KEY")
}
