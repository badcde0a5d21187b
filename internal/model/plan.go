package model

// PlanStatus indicates whether a planned action passed validation.
type PlanStatus string

const (
	// PlanOK means the action is valid and may be executed.
	PlanOK PlanStatus = "ok"

	// PlanBlocked means validation failed (e.g. missing target label);
	// the action is recorded as skipped and never attempted.
	PlanBlocked PlanStatus = "blocked"
)

// PlannedAction is a classified message resolved into a concrete, validated
// mailbox operation. Terminal once built; consumed exactly once by the
// execution engine.
type PlannedAction struct {
	// MessageUID identifies the message the action applies to.
	MessageUID uint32 `json:"uid"`

	// Category is the classification that produced this action.
	Category string `json:"category"`

	// Action is the resolved mailbox mutation.
	Action ActionKind `json:"action"`

	// TargetFolder is the destination label for move actions.
	TargetFolder string `json:"target_folder,omitempty"`

	// Status is the validation result.
	Status PlanStatus `json:"status"`

	// BlockReason explains a blocked status.
	BlockReason string `json:"block_reason,omitempty"`
}
