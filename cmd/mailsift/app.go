package main

import (
	"flag"
	"fmt"
	"time"

	"mailsift/internal/classify"
	"mailsift/internal/config"
	"mailsift/internal/credential"
	"mailsift/internal/ledger"
	"mailsift/internal/mailbox"
)

// commonFlags are the flags shared by every mailbox-touching command.
type commonFlags struct {
	configPath string
	days       int
	limit      int
	all        bool
	label      string
	quiet      bool
	modelName  string
}

func registerCommon(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVar(&f.configPath, "config", config.DefaultConfigPath(), "config file path")
	fs.IntVar(&f.days, "days", 0, "look back this many days (overrides config)")
	fs.IntVar(&f.limit, "limit", 0, "maximum messages to consider (overrides config)")
	fs.BoolVar(&f.all, "all", false, "include messages already marked seen")
	fs.StringVar(&f.label, "label", "", "triage this folder instead of the configured mailbox")
	fs.BoolVar(&f.quiet, "quiet", false, "suppress per-message output")
	fs.StringVar(&f.modelName, "model", "", "model name or alias (overrides config)")
}

// loadConfig loads and validates the config at path.
func loadConfig(path string) (*config.AppConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore dials the configured IMAP server using the keyring password.
func openStore(cfg *config.AppConfig) (*mailbox.IMAPStore, error) {
	password, err := credential.IMAPPassword()
	if err != nil {
		return nil, fmt.Errorf("loading IMAP password (run \"mailsift configure\"): %w", err)
	}

	return mailbox.Dial(mailbox.Options{
		Host:        cfg.IMAP.Host,
		Port:        cfg.IMAP.Port,
		Username:    cfg.IMAP.Username,
		Password:    password,
		TLS:         cfg.IMAP.TLS,
		TrashFolder: cfg.IMAP.TrashFolder,
	})
}

// newClassifier builds the Claude-backed classifier from config and keyring.
func newClassifier(cfg *config.AppConfig, modelName string) (*classify.Classifier, error) {
	apiKey, err := credential.AnthropicAPIKey()
	if err != nil {
		return nil, fmt.Errorf("loading API key (run \"mailsift configure\"): %w", err)
	}

	modelID := cfg.Anthropic.Model
	if modelName != "" {
		modelID = modelName
	}

	return classify.New(classify.Options{
		APIKey:    apiKey,
		Model:     classify.ResolveModel(modelID),
		MaxTokens: cfg.Anthropic.MaxTokens,
		BatchSize: cfg.Anthropic.BatchSize,
		Workers:   cfg.Anthropic.Workers,
	}), nil
}

// openLedger opens the processed-message ledger configured for the app.
func openLedger(cfg *config.AppConfig) (*ledger.Ledger, error) {
	return ledger.Open(cfg.LedgerPath)
}

// fetchCriteria merges config defaults with command-line overrides.
func fetchCriteria(cfg *config.AppConfig, f commonFlags) mailbox.FetchCriteria {
	days := cfg.Fetch.DaysBack
	if f.days > 0 {
		days = f.days
	}
	limit := cfg.Fetch.MaxMessages
	if f.limit > 0 {
		limit = f.limit
	}

	mailboxName := cfg.IMAP.Mailbox
	if f.label != "" {
		mailboxName = f.label
	}

	return mailbox.FetchCriteria{
		Mailbox:     mailboxName,
		Since:       time.Duration(days) * 24 * time.Hour,
		Limit:       limit,
		IncludeRead: f.all || !cfg.Fetch.UnreadOnly,
	}
}
