// Package config loads and persists the application configuration,
// including the triage rule set, from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"mailsift/internal/model"
)

// IMAPConfig holds the mail transport settings. The App Password itself
// lives in the system keyring, never in the config file.
type IMAPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// Username is the account address used for login.
	Username string `mapstructure:"username" yaml:"username"`

	// Mailbox is the folder triaged by default.
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// TrashFolder is where trashed messages are moved.
	TrashFolder string `mapstructure:"trash_folder" yaml:"trash_folder"`

	// TLS selects implicit TLS; when false, STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// FetchConfig bounds which messages a run considers.
type FetchConfig struct {
	DaysBack    int  `mapstructure:"days_back" yaml:"days_back"`
	MaxMessages int  `mapstructure:"max_messages" yaml:"max_messages"`
	UnreadOnly  bool `mapstructure:"unread_only" yaml:"unread_only"`
}

// AnthropicConfig holds model backend settings.
type AnthropicConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`

	// BatchSize is the maximum number of messages per classification
	// request, bounded to respect model context limits.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// Workers is the number of batches classified concurrently.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP      IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Fetch     FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`

	// Rules is the ordered category -> action mapping.
	Rules []model.Rule `mapstructure:"rules" yaml:"rules"`

	// SystemPrompt is the base classification instruction.
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt"`

	// SuggestionsPrompt steers the dry-run category-suggestion call.
	SuggestionsPrompt string `mapstructure:"suggestions_prompt" yaml:"suggestions_prompt"`

	// LedgerPath is the SQLite database recording processed messages
	// and run reports.
	LedgerPath string `mapstructure:"ledger_path" yaml:"ledger_path"`
}

const defaultSystemPrompt = "You are an email triage assistant. Classify " +
	"each email into exactly one of the user's categories based on its " +
	"sender, subject, and body excerpt."

const defaultSuggestionsPrompt = "Suggest up to three new categories that " +
	"would cover recurring kinds of email the existing categories miss."

// DefaultConfigPath returns the default configuration file location,
// ~/.config/mailsift/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailsift", "config.yaml")
}

// DefaultLedgerPath returns the default ledger database location.
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "mailsift.db")
	}
	return filepath.Join(home, ".config", "mailsift", "mailsift.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Host:        "imap.gmail.com",
			Port:        993,
			Mailbox:     "INBOX",
			TrashFolder: "[Gmail]/Trash",
			TLS:         true,
		},
		Fetch: FetchConfig{
			DaysBack:    1,
			MaxMessages: 50,
			UnreadOnly:  true,
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
			BatchSize: 20,
			Workers:   3,
		},
		Rules: []model.Rule{
			{
				Name:        "urgent",
				Description: "Time-sensitive mail that needs a reply or decision from me.",
				Action:      model.ActionStar,
			},
			{
				Name:             "newsletters",
				Description:      "Recurring newsletters, digests, and promotional mail.",
				Action:           model.ActionArchive,
				OlderThanMinutes: 60,
			},
			{
				Name:        "spam",
				Description: "Unsolicited junk that slipped past the spam filter.",
				Action:      model.ActionTrash,
			},
		},
		SystemPrompt:      defaultSystemPrompt,
		SuggestionsPrompt: defaultSuggestionsPrompt,
		LedgerPath:        DefaultLedgerPath(),
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.trash_folder", "[Gmail]/Trash")
	v.SetDefault("imap.tls", true)
	v.SetDefault("fetch.days_back", 1)
	v.SetDefault("fetch.max_messages", 50)
	v.SetDefault("fetch.unread_only", true)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.batch_size", 20)
	v.SetDefault("anthropic.workers", 3)
	v.SetDefault("system_prompt", defaultSystemPrompt)
	v.SetDefault("suggestions_prompt", defaultSuggestionsPrompt)
	v.SetDefault("ledger_path", DefaultLedgerPath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file at path, creating parent
// directories if needed.
func Save(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("imap", cfg.IMAP)
	v.Set("fetch", cfg.Fetch)
	v.Set("anthropic", cfg.Anthropic)
	v.Set("rules", cfg.Rules)
	v.Set("system_prompt", cfg.SystemPrompt)
	v.Set("suggestions_prompt", cfg.SuggestionsPrompt)
	v.Set("ledger_path", cfg.LedgerPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// RuleSet assembles the immutable rule set consumed by the pipeline.
func (c *AppConfig) RuleSet() model.RuleSet {
	return model.RuleSet{
		Rules:             c.Rules,
		SystemPrompt:      c.SystemPrompt,
		SuggestionsPrompt: c.SuggestionsPrompt,
	}
}

// Validate checks the configuration before a pipeline run. Malformed
// configuration is rejected here, never mid-run.
func (c *AppConfig) Validate() error {
	if c.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if c.IMAP.Port <= 0 {
		return fmt.Errorf("imap.port must be positive")
	}
	if c.IMAP.Username == "" {
		return fmt.Errorf("imap.username is required")
	}
	if c.Anthropic.Model == "" {
		return fmt.Errorf("anthropic.model is required")
	}
	if c.Anthropic.BatchSize <= 0 {
		return fmt.Errorf("anthropic.batch_size must be positive")
	}
	if c.Anthropic.Workers <= 0 {
		return fmt.Errorf("anthropic.workers must be positive")
	}
	if c.Fetch.MaxMessages <= 0 {
		return fmt.Errorf("fetch.max_messages must be positive")
	}

	if err := c.RuleSet().Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	return nil
}
