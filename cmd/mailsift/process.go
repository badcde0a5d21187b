package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/charmbracelet/huh"

	"mailsift/internal/classify"
	"mailsift/internal/model"
	"mailsift/internal/retry"
	"mailsift/internal/triage"
)

// runProcess is the main triage command: fetch, classify, plan, execute.
func runProcess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	var f commonFlags
	registerCommon(fs, &f)
	dryRun := fs.Bool("dry-run", false, "simulate actions without touching the mailbox")
	yes := fs.Bool("yes", false, "apply irreversible actions without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	classifier, err := newClassifier(cfg, f.modelName)
	if err != nil {
		return err
	}

	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	pipeline := triage.NewPipeline(store, classifier, led, cfg.RuleSet(), retry.DefaultPolicy)

	confirm := confirmIrreversible
	if *yes {
		confirm = nil
	}

	report, err := pipeline.Process(ctx, triage.ProcessOptions{
		Criteria: fetchCriteria(cfg, f),
		Model:    classifier.DefaultModel(),
		DryRun:   *dryRun,
		Confirm:  confirm,
	})
	if err != nil {
		return err
	}

	renderReport(report, classifier.Usage(), f.quiet)
	return nil
}

// runFetch lists candidate messages without spending any model tokens.
func runFetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var f commonFlags
	registerCommon(fs, &f)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	pipeline := triage.NewPipeline(store, nil, led, cfg.RuleSet(), retry.DefaultPolicy)
	messages, err := pipeline.Fetch(ctx, fetchCriteria(cfg, f))
	if err != nil {
		return err
	}

	renderMessages(messages)
	return nil
}

// runCompare classifies the same messages with two models and prints where
// they disagree. Nothing is written to the mailbox or the ledger.
func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	var f commonFlags
	registerCommon(fs, &f)
	modelB := fs.String("against", "haiku", "second model name or alias")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	classifier, err := newClassifier(cfg, f.modelName)
	if err != nil {
		return err
	}

	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	pipeline := triage.NewPipeline(store, classifier, led, cfg.RuleSet(), retry.DefaultPolicy)
	report, err := pipeline.Compare(
		ctx, fetchCriteria(cfg, f),
		classifier.DefaultModel(), classify.ResolveModel(*modelB),
	)
	if err != nil {
		return err
	}

	renderComparison(report, classifier.Usage())
	return nil
}

// confirmIrreversible asks the user before the engine applies move, trash
// or archive actions.
func confirmIrreversible(pending []model.PlannedAction) (bool, error) {
	fmt.Println()
	fmt.Println(renderPending(pending))

	var approved bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Apply %d irreversible action(s)?", len(pending))).
				Affirmative("Apply").
				Negative("Cancel").
				Value(&approved),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return approved, nil
}
