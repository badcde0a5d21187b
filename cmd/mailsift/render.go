package main

import (
	"fmt"
	"strings"

	"mailsift/internal/classify"
	"mailsift/internal/model"
	"mailsift/internal/theme"
)

const subjectWidth = 48

// renderReport prints a run report: per-message lines, outcome totals,
// dry-run category suggestions and token usage.
func renderReport(report *model.RunReport, usage classify.Usage, quiet bool) {
	title := "Triage run"
	if report.DryRun {
		title = "Triage run (dry-run)"
	}
	fmt.Println(theme.HeaderStyle.Render(title))

	if len(report.Entries) == 0 {
		fmt.Println(theme.SubtleStyle.Render("  nothing to triage"))
		return
	}

	if !quiet {
		for _, e := range report.Entries {
			action := string(e.Action)
			if e.TargetFolder != "" {
				action += " -> " + e.TargetFolder
			}
			line := fmt.Sprintf("  %-10s %-14s %-20s %s",
				theme.OutcomeStyle(string(e.Outcome)).Render(string(e.Outcome)),
				theme.CategoryStyle(e.Category).Render(e.Category),
				theme.ActionStyle(string(e.Action)).Render(action),
				clip(e.Subject, subjectWidth),
			)
			fmt.Println(line)
			if e.Detail != "" && e.Outcome != model.OutcomeApplied {
				fmt.Println(theme.SubtleStyle.Render("      " + e.Detail))
			}
		}
		fmt.Println()
	}

	counts := report.Counts()
	var parts []string
	for _, outcome := range []model.Outcome{
		model.OutcomeApplied, model.OutcomeSimulated,
		model.OutcomeSkipped, model.OutcomeFailed,
	} {
		if n := counts[outcome]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, outcome))
		}
	}
	fmt.Println("  " + strings.Join(parts, ", "))

	if len(report.Suggestions) > 0 {
		fmt.Println()
		fmt.Println(theme.HeaderStyle.Render("Suggested categories"))
		for _, s := range report.Suggestions {
			fmt.Printf("  %s (%s): %s\n",
				theme.CategoryStyle(s.Name).Render(s.Name),
				theme.ActionStyle(string(s.Action)).Render(string(s.Action)),
				s.Description,
			)
			if s.Reasoning != "" {
				fmt.Println(theme.SubtleStyle.Render("    " + s.Reasoning))
			}
		}
	}

	renderUsage(usage)
}

// renderPending prints the irreversible actions awaiting confirmation.
func renderPending(pending []model.PlannedAction) string {
	var sb strings.Builder
	sb.WriteString(theme.WarnStyle.Render("About to apply:"))
	sb.WriteString("\n")
	for _, pa := range pending {
		action := string(pa.Action)
		if pa.TargetFolder != "" {
			action += " -> " + pa.TargetFolder
		}
		fmt.Fprintf(&sb, "  uid %-8d %-14s %s\n",
			pa.MessageUID,
			theme.CategoryStyle(pa.Category).Render(pa.Category),
			theme.ActionStyle(string(pa.Action)).Render(action),
		)
	}
	return theme.BorderStyle.Render(sb.String())
}

// renderMessages prints the candidate list produced by the fetch command.
func renderMessages(messages []model.Message) {
	fmt.Println(theme.HeaderStyle.Render(fmt.Sprintf("%d candidate message(s)", len(messages))))
	for _, m := range messages {
		flags := ""
		if m.Starred {
			flags += "*"
		}
		if !m.Seen {
			flags += "u"
		}
		fmt.Printf("  %-8d %-2s %s  %s\n",
			m.UID, flags,
			m.Date.Local().Format("Jan 02 15:04"),
			clip(m.Subject, subjectWidth),
		)
		fmt.Println(theme.SubtleStyle.Render("              " + clip(m.Sender, subjectWidth)))
	}
}

// renderComparison prints per-message agreement between two models.
func renderComparison(report *model.ComparisonReport, usage classify.Usage) {
	fmt.Println(theme.HeaderStyle.Render(
		fmt.Sprintf("Comparing %s vs %s", report.ModelA, report.ModelB)))

	for _, row := range report.Rows {
		marker := theme.SubtleStyle.Render("=")
		if !row.Agree {
			marker = theme.WarnStyle.Render("!")
		}
		fmt.Printf("  %s %-14s %-14s %s\n",
			marker,
			theme.CategoryStyle(row.CategoryA).Render(row.CategoryA),
			theme.CategoryStyle(row.CategoryB).Render(row.CategoryB),
			clip(row.Subject, subjectWidth),
		)
	}

	total := len(report.Rows)
	if total > 0 {
		agree := report.Agreements()
		fmt.Printf("\n  agreement: %d/%d (%.0f%%)\n",
			agree, total, float64(agree)/float64(total)*100)
	}

	renderUsage(usage)
}

func renderUsage(usage classify.Usage) {
	if usage.Total() == 0 {
		return
	}
	fmt.Println(theme.SubtleStyle.Render(fmt.Sprintf(
		"  tokens: %d in, %d out", usage.InputTokens, usage.OutputTokens)))
}

// clip shortens s to at most width runes.
func clip(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
