package model

import "fmt"

// ActionKind identifies the mailbox mutation a rule maps to.
type ActionKind string

const (
	// ActionNone leaves the message untouched.
	ActionNone ActionKind = "none"

	// ActionStar flags/stars the message in place.
	ActionStar ActionKind = "star"

	// ActionMove relabels the message into a target folder.
	ActionMove ActionKind = "move"

	// ActionTrash moves the message to the trash folder.
	ActionTrash ActionKind = "trash"

	// ActionArchive removes the message from the mailbox, leaving it
	// reachable through the archive (e.g. Gmail's All Mail).
	ActionArchive ActionKind = "archive"
)

// ParseActionKind converts a config string into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(s) {
	case ActionNone, ActionStar, ActionMove, ActionTrash, ActionArchive:
		return ActionKind(s), nil
	default:
		return "", fmt.Errorf("unknown action kind %q", s)
	}
}

// Irreversible reports whether applying the action cannot be undone by the
// pipeline. The execution engine pauses for confirmation before these.
func (a ActionKind) Irreversible() bool {
	switch a {
	case ActionMove, ActionTrash, ActionArchive:
		return true
	default:
		return false
	}
}
