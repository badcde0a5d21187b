package model

import "time"

// Message is an immutable snapshot of a mailbox message taken at fetch time.
// The pipeline never mutates this struct; all changes go through the backing
// store.
type Message struct {
	// UID is the message's stable identifier within its mailbox.
	UID uint32 `json:"uid"`

	// MessageID is the RFC 5322 Message-ID header value, when present.
	MessageID string `json:"message_id,omitempty"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// Sender is the From header (display name or address).
	Sender string `json:"sender"`

	// Date is when the message was sent.
	Date time.Time `json:"date"`

	// Snippet is the plain-text body excerpt sent to the model,
	// truncated to keep token cost bounded.
	Snippet string `json:"snippet"`

	// Labels is the set of labels/folders the message currently carries.
	Labels []string `json:"labels,omitempty"`

	// Seen reports whether the message has been read.
	Seen bool `json:"seen"`

	// Starred reports whether the message is flagged/starred.
	Starred bool `json:"starred"`

	// HasAttachments reports whether the message carries attachments.
	HasAttachments bool `json:"has_attachments"`
}
