// Package mailbox wraps the mail transport behind the Store interface the
// triage pipeline consumes: fetching message snapshots, listing labels, and
// applying atomic label/flag mutations.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mailsift/internal/model"
)

// FetchCriteria bounds which messages a fetch returns.
type FetchCriteria struct {
	// Mailbox is the folder to read; empty means INBOX.
	Mailbox string

	// Since is the look-back window; only messages newer than now-Since
	// are considered.
	Since time.Duration

	// Limit caps the number of messages returned (most recent first kept).
	Limit int

	// IncludeRead includes messages already marked seen.
	IncludeRead bool

	// ExcludeUIDs drops messages already handled by earlier runs.
	ExcludeUIDs map[uint32]bool
}

// Store is the contract the pipeline holds against the mailbox. Apply must
// be idempotent for star, archive, and trash: re-applying to an
// already-acted message is a no-op, not an error.
type Store interface {
	// ListLabels returns all labels/folders in the mailbox.
	ListLabels(ctx context.Context) ([]string, error)

	// FetchMessages returns immutable snapshots of matching messages,
	// oldest first.
	FetchMessages(ctx context.Context, criteria FetchCriteria) ([]model.Message, error)

	// Apply executes a single mutation against a message. Target is only
	// used for move actions.
	Apply(ctx context.Context, uid uint32, action model.ActionKind, target string) error

	// Close releases the underlying transport connection.
	Close() error
}

// TransportError indicates a mail-protocol failure. Per-call retries wrap
// around it; it is fatal only when a required operation exhausts them.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err (or any error in its chain) is a
// TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
