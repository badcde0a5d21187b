package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"mailsift/internal/classify"
	"mailsift/internal/config"
	"mailsift/internal/credential"
	"mailsift/internal/theme"
)

// runConfigure walks through account setup, stores secrets in the system
// keyring, and verifies both the IMAP and the model backend connections.
func runConfigure(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "config file path")
	skipTest := fs.Bool("skip-test", false, "skip connection verification")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	var (
		host      = cfg.IMAP.Host
		port      = strconv.Itoa(cfg.IMAP.Port)
		username  = cfg.IMAP.Username
		password  string
		apiKey    string
		// The select's option values are aliases, so the stored full ID
		// must be mapped back for the current choice to pre-select.
		modelName = classify.ModelAlias(cfg.Anthropic.Model)
		useTLS    = cfg.IMAP.TLS
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.gmail.com").
				Value(&host).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Email account address").
				Placeholder("user@example.com").
				Value(&username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("App Password").
				Description("Stored in the system keyring. Leave blank to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewConfirm().
				Title("Use TLS").
				Description("Implicit TLS; answer No for STARTTLS").
				Affirmative("Yes").
				Negative("No").
				Value(&useTLS),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Anthropic API Key").
				Description("Stored in the system keyring. Leave blank to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewSelect[string]().
				Title("Model").
				Description("Default model for classification").
				Options(
					huh.NewOption("Sonnet - balanced quality and cost", "sonnet"),
					huh.NewOption("Haiku - fastest and cheapest", "haiku"),
					huh.NewOption("Opus - highest quality", "opus"),
				).
				Value(&modelName),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.IMAP.Host = strings.TrimSpace(host)
	cfg.IMAP.Port, _ = strconv.Atoi(strings.TrimSpace(port))
	cfg.IMAP.Username = strings.TrimSpace(username)
	cfg.IMAP.TLS = useTLS
	cfg.Anthropic.Model = classify.ResolveModel(modelName)

	if password != "" {
		if err := credential.SetIMAPPassword(password); err != nil {
			return fmt.Errorf("storing IMAP password: %w", err)
		}
	}
	if apiKey != "" {
		if err := credential.SetAnthropicAPIKey(apiKey); err != nil {
			return fmt.Errorf("storing API key: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(*configPath, cfg); err != nil {
		return err
	}
	fmt.Println("Configuration saved to " + *configPath)

	if *skipTest {
		return nil
	}
	return testConnections(ctx, cfg)
}

// testConnections verifies both backends so misconfiguration surfaces now
// rather than mid-run.
func testConnections(ctx context.Context, cfg *config.AppConfig) error {
	fmt.Print("Testing IMAP connection... ")
	store, err := openStore(cfg)
	if err != nil {
		fmt.Println(theme.ErrorStyle.Render("failed"))
		return err
	}
	labels, err := store.ListLabels(ctx)
	store.Close()
	if err != nil {
		fmt.Println(theme.ErrorStyle.Render("failed"))
		return err
	}
	fmt.Printf("ok (%d folders)\n", len(labels))

	fmt.Print("Testing model backend... ")
	classifier, err := newClassifier(cfg, "")
	if err != nil {
		fmt.Println(theme.ErrorStyle.Render("failed"))
		return err
	}
	if err := classifier.Ping(ctx); err != nil {
		fmt.Println(theme.ErrorStyle.Render("failed"))
		return err
	}
	fmt.Println("ok")

	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}
