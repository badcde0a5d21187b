package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mailsift/internal/mailbox"
	"mailsift/internal/model"
	"mailsift/internal/retry"
)

// Classifier is the model backend the pipeline classifies with.
type Classifier interface {
	Classify(ctx context.Context, messages []model.Message, rules model.RuleSet, modelID string) ([]model.Classification, error)
	SuggestCategories(ctx context.Context, messages []model.Message, rules model.RuleSet, classifications []model.Classification, modelID string) ([]model.Suggestion, error)
}

// Ledger records which messages were already handled and keeps the run
// audit trail.
type Ledger interface {
	ProcessedUIDs(ctx context.Context, mailboxName string) (map[uint32]bool, error)
	MarkProcessed(ctx context.Context, mailboxName string, uids []uint32) error
	RecordRun(ctx context.Context, report *model.RunReport) error
}

// Pipeline wires the mailbox store, the classifier and the ledger into the
// fetch, classify, plan, execute sequence.
type Pipeline struct {
	store      mailbox.Store
	classifier Classifier
	ledger     Ledger
	rules      model.RuleSet
	retry      retry.Policy
	log        *logrus.Entry
}

// NewPipeline creates a Pipeline. The ledger may be nil, in which case no
// processed-message bookkeeping happens. The retry policy bounds every
// transport call: fetch, label listing, and each applied action.
func NewPipeline(
	store mailbox.Store,
	classifier Classifier,
	ledger Ledger,
	rules model.RuleSet,
	policy retry.Policy,
) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: classifier,
		ledger:     ledger,
		rules:      rules,
		retry:      policy,
		log:        logrus.WithField("component", "pipeline"),
	}
}

// ProcessOptions controls a Process call.
type ProcessOptions struct {
	Criteria mailbox.FetchCriteria

	// Model overrides the classifier's default model when non-empty.
	Model string

	DryRun  bool
	Confirm ConfirmFunc
}

// Fetch lists candidate messages, excluding anything the ledger already saw
// and anything the user already starred.
func (p *Pipeline) Fetch(ctx context.Context, criteria mailbox.FetchCriteria) ([]model.Message, error) {
	if p.ledger != nil {
		processed, err := p.ledger.ProcessedUIDs(ctx, criteria.Mailbox)
		if err != nil {
			return nil, fmt.Errorf("loading processed messages: %w", err)
		}
		criteria.ExcludeUIDs = processed
	}

	var messages []model.Message
	err := p.retry.Do(ctx, func() error {
		var err error
		messages, err = p.store.FetchMessages(ctx, criteria)
		return err
	})
	if err != nil {
		return nil, err
	}

	kept := messages[:0:0]
	for _, m := range messages {
		if m.Starred {
			continue
		}
		kept = append(kept, m)
	}
	return kept, nil
}

// Process runs the full triage sequence and returns the run report. Messages
// whose action applied cleanly are marked processed so later runs skip them;
// failed messages stay eligible.
func (p *Pipeline) Process(ctx context.Context, opts ProcessOptions) (*model.RunReport, error) {
	messages, err := p.Fetch(ctx, opts.Criteria)
	if err != nil {
		return nil, err
	}

	engine := NewEngine(p.store, p.retry)
	execOpts := ExecOptions{
		DryRun:  opts.DryRun,
		Confirm: opts.Confirm,
		Mailbox: opts.Criteria.Mailbox,
		Model:   opts.Model,
	}

	if len(messages) == 0 {
		report := engine.Execute(ctx, nil, nil, execOpts)
		return report, nil
	}

	var labels []string
	err = p.retry.Do(ctx, func() error {
		var err error
		labels, err = p.store.ListLabels(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}

	classifications, err := p.classifier.Classify(ctx, messages, p.rules, opts.Model)
	if err != nil {
		return nil, fmt.Errorf("classifying messages: %w", err)
	}

	plan := BuildPlan(classifications, messages, p.rules, labels, time.Now())
	report := engine.Execute(ctx, messages, plan, execOpts)

	if opts.DryRun {
		suggestions, err := p.classifier.SuggestCategories(ctx, messages, p.rules, classifications, opts.Model)
		if err != nil {
			// Suggestions are best effort, the report stands without them.
			p.log.WithError(err).Warn("category suggestions failed")
		} else {
			report.Suggestions = suggestions
		}
	}

	if p.ledger != nil {
		if !opts.DryRun {
			var applied []uint32
			for _, entry := range report.Entries {
				if entry.Outcome == model.OutcomeApplied {
					applied = append(applied, entry.MessageUID)
				}
			}
			if err := p.ledger.MarkProcessed(ctx, opts.Criteria.Mailbox, applied); err != nil {
				p.log.WithError(err).Warn("marking messages processed failed")
			}
		}
		if err := p.ledger.RecordRun(ctx, report); err != nil {
			p.log.WithError(err).Warn("recording run failed")
		}
	}

	return report, nil
}

// Compare classifies the same candidate set with two models without touching
// the mailbox or the ledger.
func (p *Pipeline) Compare(
	ctx context.Context,
	criteria mailbox.FetchCriteria,
	modelA, modelB string,
) (*model.ComparisonReport, error) {
	messages, err := p.Fetch(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return NewComparator(p.classifier).Compare(ctx, messages, p.rules, modelA, modelB)
}
