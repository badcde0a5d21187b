package main

import (
	"context"
	"flag"
	"fmt"

	"mailsift/internal/config"
	"mailsift/internal/theme"
)

// runRules prints the configured categories and their actions.
func runRules(args []string) error {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	fmt.Println(theme.HeaderStyle.Render("Categories"))
	for _, rule := range cfg.Rules {
		action := string(rule.Action)
		if rule.TargetFolder != "" {
			action += " -> " + rule.TargetFolder
		}
		line := fmt.Sprintf("  %-16s %s",
			theme.CategoryStyle(rule.Name).Render(rule.Name),
			theme.ActionStyle(string(rule.Action)).Render(action),
		)
		if rule.OlderThanMinutes > 0 {
			line += theme.SubtleStyle.Render(
				fmt.Sprintf("  (only if older than %dm)", rule.OlderThanMinutes))
		}
		fmt.Println(line)
		if rule.Description != "" {
			fmt.Println(theme.SubtleStyle.Render("    " + rule.Description))
		}
	}
	return nil
}

// runFolders lists the folders available on the IMAP server.
func runFolders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("folders", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	labels, err := store.ListLabels(ctx)
	if err != nil {
		return err
	}

	fmt.Println(theme.HeaderStyle.Render("Folders"))
	for _, label := range labels {
		fmt.Println("  " + label)
	}
	return nil
}

// runHistory shows recent runs from the local ledger.
func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "config file path")
	limit := fs.Int("limit", 20, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	runs, err := led.RecentRuns(ctx, *limit)
	if err != nil {
		return err
	}

	fmt.Println(theme.HeaderStyle.Render("Recent runs"))
	if len(runs) == 0 {
		fmt.Println(theme.SubtleStyle.Render("  no runs recorded yet"))
		return nil
	}
	for _, run := range runs {
		mode := "live"
		if run.DryRun {
			mode = "dry-run"
		}
		fmt.Printf("  %s  %-8s %-10s %3d message(s)  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			mode, run.Mailbox, run.Entries,
			theme.SubtleStyle.Render(run.Model),
		)
	}
	return nil
}
