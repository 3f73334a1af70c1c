package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default homeservers per network. The testnet default matches the pubky
// testnet docker setup.
const (
	mainnetHomeserver = "https://homeserver.pubky.app"
	testnetHomeserver = "http://localhost:15411"
)

// Config is the complete agent configuration, resolved once at startup from
// the process environment. Components receive the values they need through
// their constructors; nothing reads the environment after startup.
type Config struct {
	// NexusURL is the base URL of the nexus feed service.
	NexusURL string

	// OpenAIKey authenticates against the text-generation service.
	OpenAIKey string

	// OpenAIModel selects the generation model.
	OpenAIModel string

	// SecretWords is the BIP-39 mnemonic the bot's identity derives from.
	SecretWords string

	// PublicKey is the expected z-base-32 public identity. Startup fails
	// when the derived keypair does not match it.
	PublicKey string

	// Testnet selects the test network defaults.
	Testnet bool

	// HomeserverURL overrides the per-network homeserver default.
	HomeserverURL string

	// PollInterval is the pause between poll ticks.
	PollInterval time.Duration

	// KnowledgeBasePath optionally points at a plain-text file whose
	// contents are appended to the system prompt, loaded once at startup.
	KnowledgeBasePath string

	// JournalDBPath is the location of the local SQLite activity journal.
	JournalDBPath string

	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string
}

// LoadConfig builds the configuration from the environment using Viper.
// Secrets missing from the environment are filled through lookup, typically
// backed by the OS keyring; pass nil to skip the fallback.
func LoadConfig(lookup func(key string) (string, error)) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("POLL_INTERVAL", "5s")
	v.SetDefault("JOURNAL_DB_PATH", defaultJournalPath())
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		NexusURL:          strings.TrimRight(v.GetString("NEXUS_URL"), "/"),
		OpenAIKey:         v.GetString("OPENAI_API_KEY"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		SecretWords:       v.GetString("BOT_SECRET_WORDS"),
		PublicKey:         v.GetString("BOT_PUBLIC_KEY"),
		Testnet:           v.GetBool("TESTNET"),
		HomeserverURL:     strings.TrimRight(v.GetString("HOMESERVER_URL"), "/"),
		PollInterval:      v.GetDuration("POLL_INTERVAL"),
		KnowledgeBasePath: v.GetString("KNOWLEDGE_BASE_PATH"),
		JournalDBPath:     v.GetString("JOURNAL_DB_PATH"),
		LogLevel:          v.GetString("LOG_LEVEL"),
	}

	if lookup != nil {
		if cfg.OpenAIKey == "" {
			if val, err := lookup("openai_api_key"); err == nil {
				cfg.OpenAIKey = val
			}
		}
		if cfg.SecretWords == "" {
			if val, err := lookup("bot_secret_words"); err == nil {
				cfg.SecretWords = val
			}
		}
	}

	if cfg.HomeserverURL == "" {
		if cfg.Testnet {
			cfg.HomeserverURL = testnetHomeserver
		} else {
			cfg.HomeserverURL = mainnetHomeserver
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	return cfg, nil
}

// Validate reports every missing required setting at once. Any missing
// value is fatal at startup.
func (c *Config) Validate() error {
	var missing []string
	if c.NexusURL == "" {
		missing = append(missing, "NEXUS_URL")
	}
	if c.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.SecretWords == "" {
		missing = append(missing, "BOT_SECRET_WORDS")
	}
	if c.PublicKey == "" {
		missing = append(missing, "BOT_PUBLIC_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// defaultJournalPath places the journal under the user's data directory.
func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "journal.db")
	}
	return filepath.Join(home, ".local", "share", "pubky-agent", "journal.db")
}
