package model

// Classification is one model decision for one message. Exactly one is
// produced per (message, model) pair; the category is always constrained to
// the rule set's names plus the reserved unclassified fallback.
type Classification struct {
	// MessageUID identifies the classified message.
	MessageUID uint32 `json:"uid"`

	// Category is the resolved category name.
	Category string `json:"category"`

	// Model is the identifier of the model that produced the decision.
	Model string `json:"model"`

	// Confidence is the model's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Rationale is the model's brief explanation, or the error detail when
	// classification degraded to unclassified.
	Rationale string `json:"rationale,omitempty"`
}

// Suggestion is a new category the model thinks would be useful. Suggestions
// are requested only in dry-run mode and never influence the current run.
type Suggestion struct {
	// Name is the proposed category name.
	Name string `json:"name"`

	// Description is what messages the category would match.
	Description string `json:"description"`

	// Action is the recommended action for the category.
	Action ActionKind `json:"action"`

	// ExampleUIDs are messages from the current batch that would fit.
	ExampleUIDs []uint32 `json:"example_uids,omitempty"`

	// Reasoning is why the category would be useful.
	Reasoning string `json:"reasoning"`
}
