package model

import "time"

// Outcome is the terminal state of one message within a run.
type Outcome string

const (
	// OutcomeApplied means the action was executed (or was a trivial none).
	OutcomeApplied Outcome = "applied"

	// OutcomeSimulated means the action was recorded but not executed
	// because the run was a dry run.
	OutcomeSimulated Outcome = "simulated"

	// OutcomeSkipped means the action was not attempted: blocked at
	// plan-build time or abandoned after a cancelled confirmation.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means the action was attempted and failed after
	// retries were exhausted.
	OutcomeFailed Outcome = "failed"
)

// ReportEntry is the per-message line of a run report.
type ReportEntry struct {
	MessageUID   uint32     `json:"uid"`
	Subject      string     `json:"subject"`
	Category     string     `json:"category"`
	Action       ActionKind `json:"action"`
	TargetFolder string     `json:"target_folder,omitempty"`
	Outcome      Outcome    `json:"outcome"`

	// Detail carries the blocking reason or error text for skipped and
	// failed entries.
	Detail string `json:"detail,omitempty"`
}

// RunReport is the per-run outcome ledger: every input message appears
// exactly once with exactly one outcome. It is the only artifact surfaced
// to the caller and the unit of the audit log.
type RunReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Mailbox is the mailbox the run operated on.
	Mailbox string `json:"mailbox"`

	// Model is the model identifier used for classification.
	Model string `json:"model"`

	// DryRun reports whether the run only simulated its actions.
	DryRun bool `json:"dry_run"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Entries holds one line per input message, in input order.
	Entries []ReportEntry `json:"entries"`

	// Suggestions holds proposed new categories (dry-run only).
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Counts tallies entries by outcome.
func (r *RunReport) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, 4)
	for _, e := range r.Entries {
		counts[e.Outcome]++
	}
	return counts
}

// ComparisonRow is the per-message line of a two-model comparison.
type ComparisonRow struct {
	MessageUID  uint32  `json:"uid"`
	Subject     string  `json:"subject"`
	CategoryA   string  `json:"category_a"`
	CategoryB   string  `json:"category_b"`
	ConfidenceA float64 `json:"confidence_a"`
	ConfidenceB float64 `json:"confidence_b"`
	Agree       bool    `json:"agree"`
}

// ComparisonReport is the result of classifying the same batch with two
// models. Comparison mode never mutates the mailbox.
type ComparisonReport struct {
	ModelA string          `json:"model_a"`
	ModelB string          `json:"model_b"`
	Rows   []ComparisonRow `json:"rows"`
}

// Agreements counts rows where both models chose the same category.
func (r *ComparisonReport) Agreements() int {
	n := 0
	for _, row := range r.Rows {
		if row.Agree {
			n++
		}
	}
	return n
}
