// Package triage turns classifications into an execution plan and applies
// that plan to a mailbox under dry-run and confirmation gates.
package triage

import (
	"fmt"
	"time"

	"mailsift/internal/model"
)

// BuildPlan maps each classification to a planned action using the rule set.
// It is a pure function: validation problems surface as blocked entries, and
// the output preserves the order of the input classifications.
func BuildPlan(
	classifications []model.Classification,
	messages []model.Message,
	rules model.RuleSet,
	labels []string,
	now time.Time,
) []model.PlannedAction {
	byUID := make(map[uint32]model.Message, len(messages))
	for _, m := range messages {
		byUID[m.UID] = m
	}

	known := make(map[string]bool, len(labels))
	for _, l := range labels {
		known[l] = true
	}

	plan := make([]model.PlannedAction, 0, len(classifications))
	for _, c := range classifications {
		plan = append(plan, planOne(c, byUID[c.MessageUID], rules, known, now))
	}
	return plan
}

func planOne(
	c model.Classification,
	msg model.Message,
	rules model.RuleSet,
	labels map[string]bool,
	now time.Time,
) model.PlannedAction {
	pa := model.PlannedAction{
		MessageUID: c.MessageUID,
		Category:   c.Category,
		Action:     model.ActionNone,
		Status:     model.PlanOK,
	}

	rule, ok := rules.Lookup(c.Category)
	if !ok {
		// Unknown or unclassified categories never act.
		return pa
	}

	pa.Action = rule.Action
	pa.TargetFolder = rule.TargetFolder

	if rule.Action == model.ActionStar && msg.Starred {
		// Already starred, nothing to do.
		pa.Action = model.ActionNone
		pa.TargetFolder = ""
		return pa
	}

	if rule.OlderThanMinutes > 0 && rule.Action.Irreversible() {
		age := now.Sub(msg.Date)
		if age < time.Duration(rule.OlderThanMinutes)*time.Minute {
			// Too recent for a destructive action, hold off this run.
			pa.Action = model.ActionNone
			pa.TargetFolder = ""
			return pa
		}
	}

	if rule.Action == model.ActionMove && !labels[rule.TargetFolder] {
		pa.Status = model.PlanBlocked
		pa.BlockReason = fmt.Sprintf("target label %q does not exist", rule.TargetFolder)
	}

	return pa
}
