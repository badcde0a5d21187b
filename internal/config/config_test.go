package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"mailsift/internal/model"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))

	assert.NoError(t, err)
	assert.Equal(t, "imap.gmail.com", cfg.IMAP.Host)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.True(t, cfg.IMAP.TLS)
	assert.NotEmpty(t, cfg.Rules)
	assert.NotEmpty(t, cfg.SystemPrompt)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	assert.NoError(t, err)

	cfg.IMAP.Host = "mail.example.com"
	cfg.IMAP.Username = "user@example.com"
	cfg.Fetch.DaysBack = 7
	cfg.Rules = []model.Rule{
		{Name: "urgent", Description: "needs a reply today", Action: model.ActionStar},
		{Name: "receipts", Action: model.ActionMove, TargetFolder: "Receipts", OlderThanMinutes: 30},
	}

	assert.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "mail.example.com", loaded.IMAP.Host)
	assert.Equal(t, "user@example.com", loaded.IMAP.Username)
	assert.Equal(t, 7, loaded.Fetch.DaysBack)
	assert.Equal(t, cfg.Rules, loaded.Rules)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *AppConfig {
		cfg := defaultAppConfig()
		cfg.IMAP.Username = "user@example.com"
		return cfg
	}

	assert.NoError(t, base().Validate())

	noHost := base()
	noHost.IMAP.Host = ""
	assert.Error(t, noHost.Validate())

	badPort := base()
	badPort.IMAP.Port = 0
	assert.Error(t, badPort.Validate())

	noUser := base()
	noUser.IMAP.Username = ""
	assert.Error(t, noUser.Validate())

	noModel := base()
	noModel.Anthropic.Model = ""
	assert.Error(t, noModel.Validate())

	badRules := base()
	badRules.Rules = []model.Rule{{Name: "x", Action: model.ActionMove}}
	assert.Error(t, badRules.Validate())
}

func TestRuleSetCarriesPrompts(t *testing.T) {
	cfg := defaultAppConfig()
	rs := cfg.RuleSet()

	assert.Equal(t, cfg.SystemPrompt, rs.SystemPrompt)
	assert.Equal(t, cfg.SuggestionsPrompt, rs.SuggestionsPrompt)
	assert.Equal(t, cfg.Rules, rs.Rules)
	assert.NoError(t, rs.Validate())
}
