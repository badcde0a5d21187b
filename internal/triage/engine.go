package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mailsift/internal/mailbox"
	"mailsift/internal/model"
	"mailsift/internal/retry"
)

// ConfirmFunc decides whether a batch of irreversible actions may proceed.
// Returning false cancels them; the reversible part of the run is unaffected.
type ConfirmFunc func(pending []model.PlannedAction) (bool, error)

// ExecOptions controls a single Execute call.
type ExecOptions struct {
	// DryRun simulates every action without touching the mailbox.
	DryRun bool

	// Confirm gates irreversible actions. Nil means approve.
	Confirm ConfirmFunc

	// Mailbox and Model annotate the run report.
	Mailbox string
	Model   string
}

// Engine applies a plan to a mailbox store. Failures are isolated per
// message: one failed action never aborts the rest of the run.
type Engine struct {
	store mailbox.Store
	retry retry.Policy
	log   *logrus.Entry
}

// NewEngine creates an Engine applying actions through store.
func NewEngine(store mailbox.Store, policy retry.Policy) *Engine {
	return &Engine{
		store: store,
		retry: policy,
		log:   logrus.WithField("component", "engine"),
	}
}

// Execute applies the plan and returns a report with exactly one entry per
// planned action, in plan order. Reversible actions run before irreversible
// ones so that a cancelled confirmation still stars what should be starred.
func (e *Engine) Execute(
	ctx context.Context,
	messages []model.Message,
	plan []model.PlannedAction,
	opts ExecOptions,
) *model.RunReport {
	report := &model.RunReport{
		ID:        uuid.NewString(),
		Mailbox:   opts.Mailbox,
		Model:     opts.Model,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	defer func() { report.FinishedAt = time.Now() }()

	subjects := make(map[uint32]string, len(messages))
	for _, m := range messages {
		subjects[m.UID] = m.Subject
	}

	outcomes := make([]model.ReportEntry, len(plan))
	for i, pa := range plan {
		outcomes[i] = model.ReportEntry{
			MessageUID:   pa.MessageUID,
			Subject:      subjects[pa.MessageUID],
			Category:     pa.Category,
			Action:       pa.Action,
			TargetFolder: pa.TargetFolder,
		}
	}

	if opts.DryRun {
		for i, pa := range plan {
			outcomes[i].Outcome = model.OutcomeSimulated
			if pa.Status == model.PlanBlocked {
				outcomes[i].Outcome = model.OutcomeSkipped
				outcomes[i].Detail = pa.BlockReason
			}
		}
		report.Entries = outcomes
		return report
	}

	var irreversible []int
	for i, pa := range plan {
		switch {
		case pa.Status == model.PlanBlocked:
			outcomes[i].Outcome = model.OutcomeSkipped
			outcomes[i].Detail = pa.BlockReason
		case pa.Action == model.ActionNone:
			outcomes[i].Outcome = model.OutcomeApplied
			outcomes[i].Detail = "no action"
		case pa.Action.Irreversible():
			irreversible = append(irreversible, i)
		default:
			e.applyOne(ctx, plan[i], &outcomes[i])
		}
	}

	if len(irreversible) > 0 {
		pending := make([]model.PlannedAction, 0, len(irreversible))
		for _, i := range irreversible {
			pending = append(pending, plan[i])
		}

		approved, err := e.confirm(opts.Confirm, pending)
		if err != nil || !approved {
			detail := "cancelled by user"
			if err != nil {
				detail = fmt.Sprintf("confirmation failed: %v", err)
			}
			for _, i := range irreversible {
				outcomes[i].Outcome = model.OutcomeSkipped
				outcomes[i].Detail = detail
			}
		} else {
			for _, i := range irreversible {
				e.applyOne(ctx, plan[i], &outcomes[i])
			}
		}
	}

	report.Entries = outcomes
	return report
}

func (e *Engine) confirm(fn ConfirmFunc, pending []model.PlannedAction) (bool, error) {
	if fn == nil {
		return true, nil
	}
	return fn(pending)
}

// applyOne applies a single action with bounded retries, recording the
// outcome in place.
func (e *Engine) applyOne(ctx context.Context, pa model.PlannedAction, entry *model.ReportEntry) {
	err := e.retry.Do(ctx, func() error {
		return e.store.Apply(ctx, pa.MessageUID, pa.Action, pa.TargetFolder)
	})
	if err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"uid":    pa.MessageUID,
			"action": pa.Action,
		}).Error("applying action failed")
		entry.Outcome = model.OutcomeFailed
		entry.Detail = err.Error()
		return
	}
	entry.Outcome = model.OutcomeApplied
}
