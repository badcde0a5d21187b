// Package credential stores the IMAP App Password and the Anthropic API key
// in the system keyring, with environment-variable overrides for headless
// use.
package credential

import (
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "mailsift"

// Keyring item keys.
const (
	keyIMAPPassword    = "imap_password"
	keyAnthropicAPIKey = "anthropic_api_key"
)

// Environment variables that take precedence over the keyring.
const (
	EnvIMAPPassword    = "MAILSIFT_IMAP_PASSWORD"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailsift/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailsift-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// get retrieves a credential value by key from the system keyring.
func get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// set stores a credential value by key in the system keyring.
func set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// IMAPPassword returns the mail App Password, preferring the environment
// over the keyring.
func IMAPPassword() (string, error) {
	if v := os.Getenv(EnvIMAPPassword); v != "" {
		return v, nil
	}
	return get(keyIMAPPassword)
}

// SetIMAPPassword stores the mail App Password in the keyring.
func SetIMAPPassword(password string) error {
	return set(keyIMAPPassword, password)
}

// AnthropicAPIKey returns the model backend API key, preferring the
// environment over the keyring.
func AnthropicAPIKey() (string, error) {
	if v := os.Getenv(EnvAnthropicAPIKey); v != "" {
		return v, nil
	}
	return get(keyAnthropicAPIKey)
}

// SetAnthropicAPIKey stores the model backend API key in the keyring.
func SetAnthropicAPIKey(apiKey string) error {
	return set(keyAnthropicAPIKey, apiKey)
}
