package model

import "fmt"

// CategoryUnclassified is the reserved fallback category used whenever a
// classification cannot be resolved. It always maps to ActionNone.
const CategoryUnclassified = "unclassified"

// Rule is a single triage category: the classification guidance shown to
// the model and the mailbox action its matches receive.
type Rule struct {
	// Name is the category name the model must answer with.
	Name string `mapstructure:"name" yaml:"name"`

	// Description is the free-text hint describing what belongs here.
	Description string `mapstructure:"description" yaml:"description"`

	// Action is the mailbox mutation applied to matching messages.
	Action ActionKind `mapstructure:"action" yaml:"action"`

	// TargetFolder is the destination label for ActionMove rules.
	TargetFolder string `mapstructure:"target_folder" yaml:"target_folder"`

	// OlderThanMinutes, when positive, downgrades the action to none for
	// messages younger than this age. Keeps fresh mail visible until the
	// user had a chance to see it.
	OlderThanMinutes int `mapstructure:"older_than_minutes" yaml:"older_than_minutes"`
}

// RuleSet is the user's ordered category -> action mapping plus the
// free-text classification guidance. It is loaded once per run and held
// immutable.
type RuleSet struct {
	// Rules is the ordered list of categories. Order is preserved in the
	// prompt sent to the model.
	Rules []Rule

	// SystemPrompt is the base instruction prepended to every
	// classification request.
	SystemPrompt string

	// SuggestionsPrompt steers the dry-run category-suggestion call.
	SuggestionsPrompt string
}

// Lookup returns the rule for the given category name.
func (rs RuleSet) Lookup(category string) (Rule, bool) {
	for _, r := range rs.Rules {
		if r.Name == category {
			return r, true
		}
	}
	return Rule{}, false
}

// CategoryNames returns the rule names in declaration order.
func (rs RuleSet) CategoryNames() []string {
	names := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		names = append(names, r.Name)
	}
	return names
}

// Validate checks the rule set for structural problems. A rule set that
// fails validation is rejected before the pipeline starts.
func (rs RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("rule set has no categories")
	}

	seen := make(map[string]bool, len(rs.Rules))
	for _, r := range rs.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule with empty category name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate category %q", r.Name)
		}
		seen[r.Name] = true

		if _, err := ParseActionKind(string(r.Action)); err != nil {
			return fmt.Errorf("category %q: %w", r.Name, err)
		}
		if r.Action == ActionMove && r.TargetFolder == "" {
			return fmt.Errorf("category %q: move action requires a target folder", r.Name)
		}
		if r.Name == CategoryUnclassified && r.Action != ActionNone {
			return fmt.Errorf("category %q is reserved and must map to action none", r.Name)
		}
		if r.OlderThanMinutes < 0 {
			return fmt.Errorf("category %q: older_than_minutes must not be negative", r.Name)
		}
	}

	return nil
}
