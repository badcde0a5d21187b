package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/sirupsen/logrus"

	"mailsift/internal/model"
)

// dialTimeout bounds the initial TCP/TLS handshake.
const dialTimeout = 30 * time.Second

// commandTimeout bounds each protocol exchange after login.
const commandTimeout = 60 * time.Second

// Options configures an IMAP-backed store.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string

	// TLS selects implicit TLS; when false, STARTTLS is used.
	TLS bool

	// TrashFolder is the destination for trash actions.
	TrashFolder string
}

// IMAPStore implements Store over a single authenticated IMAP connection.
// It is not safe for concurrent use; the pipeline applies actions
// sequentially by design.
type IMAPStore struct {
	client      *imapclient.Client
	trashFolder string

	// selected tracks the currently selected mailbox and access mode, so
	// repeated operations against the same folder skip redundant SELECTs.
	selected     string
	selectedRead bool

	log *logrus.Entry
}

// Dial connects and authenticates. A failure here is fatal to the run; the
// caller must Close the returned store.
func Dial(opts Options) (*IMAPStore, error) {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)

	var client *imapclient.Client
	var err error

	if opts.TLS {
		dialer := &net.Dialer{Timeout: dialTimeout}
		conn, dialErr := tls.DialWithDialer(dialer, "tcp", addr, nil)
		if dialErr != nil {
			return nil, &TransportError{Op: "dial", Err: dialErr}
		}
		client = imapclient.New(conn, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
		if err != nil {
			return nil, &TransportError{Op: "dial", Err: err}
		}
	}

	if err := client.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &TransportError{Op: "login", Err: err}
	}

	trash := opts.TrashFolder
	if trash == "" {
		trash = "[Gmail]/Trash"
	}

	return &IMAPStore{
		client:      client,
		trashFolder: trash,
		log:         logrus.WithField("component", "mailbox"),
	}, nil
}

// Close logs out and releases the connection.
func (s *IMAPStore) Close() error {
	return s.client.Logout().Wait()
}

// ListLabels returns all folder names, used to validate move targets before
// any mutation happens.
func (s *IMAPStore) ListLabels(ctx context.Context) ([]string, error) {
	var mailboxes []*imap.ListData
	err := s.wait(ctx, "list", func() error {
		var err error
		mailboxes, err = s.client.List("", "*", nil).Collect()
		return err
	})
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(mailboxes))
	for _, mb := range mailboxes {
		labels = append(labels, mb.Mailbox)
	}
	return labels, nil
}

// FetchMessages searches the mailbox and returns parsed snapshots.
func (s *IMAPStore) FetchMessages(
	ctx context.Context, criteria FetchCriteria,
) ([]model.Message, error) {
	name := criteria.Mailbox
	if name == "" {
		name = "INBOX"
	}

	if err := s.selectMailbox(ctx, name, true); err != nil {
		return nil, err
	}

	search := &imap.SearchCriteria{}
	if criteria.Since > 0 {
		search.Since = time.Now().Add(-criteria.Since)
	}
	if !criteria.IncludeRead {
		search.NotFlag = []imap.Flag{imap.FlagSeen}
	}

	var searchData *imap.SearchData
	err := s.wait(ctx, "search", func() error {
		var err error
		searchData, err = s.client.UIDSearch(search, nil).Wait()
		return err
	})
	if err != nil {
		return nil, err
	}

	uids := searchData.AllUIDs()
	if len(criteria.ExcludeUIDs) > 0 {
		kept := uids[:0]
		for _, uid := range uids {
			if !criteria.ExcludeUIDs[uint32(uid)] {
				kept = append(kept, uid)
			}
		}
		uids = kept
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// Keep the most recent ones.
	if criteria.Limit > 0 && len(uids) > criteria.Limit {
		uids = uids[len(uids)-criteria.Limit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	var messages []model.Message
	err = s.wait(ctx, "fetch", func() error {
		fetchCmd := s.client.Fetch(uidSet, fetchOpts)
		for {
			msg := fetchCmd.Next()
			if msg == nil {
				break
			}

			buf, err := msg.Collect()
			if err != nil {
				// Skip messages that fail to parse rather than aborting
				// the whole fetch.
				s.log.WithError(err).Warn("skipping unparseable message")
				continue
			}

			messages = append(messages, messageFromBuffer(buf, name, bodySection))
		}
		return fetchCmd.Close()
	})
	if err != nil {
		// The collecting goroutine may still hold the slice after a
		// timeout, so partial results are not returned.
		return nil, err
	}

	return messages, nil
}

// Apply executes one mutation. Star, archive, and trash tolerate a message
// that has already been acted on.
func (s *IMAPStore) Apply(
	ctx context.Context, uid uint32, action model.ActionKind, target string,
) error {
	if action == model.ActionNone {
		return nil
	}

	// Fetching leaves the mailbox EXAMINE'd; mutations need a fresh
	// read-write SELECT first.
	if err := s.selectMailbox(ctx, s.selected, false); err != nil {
		return err
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	switch action {
	case model.ActionStar:
		return s.storeFlags(ctx, uidSet, imap.StoreFlagsAdd, imap.FlagFlagged)

	case model.ActionMove:
		return s.move(ctx, uid, uidSet, target)

	case model.ActionTrash:
		return s.move(ctx, uid, uidSet, s.trashFolder)

	case model.ActionArchive:
		// Gmail-style archive: drop the message from the current folder;
		// it stays reachable through All Mail.
		if err := s.storeFlags(ctx, uidSet, imap.StoreFlagsAdd, imap.FlagDeleted); err != nil {
			return err
		}
		return s.wait(ctx, "expunge", func() error {
			return s.client.Expunge().Close()
		})

	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

// wait runs one protocol exchange, bounded by the caller's context and the
// per-command timeout. On expiry the connection is closed so the pending
// command unblocks; the store must not be reused after that.
func (s *IMAPStore) wait(ctx context.Context, op string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		return nil
	case <-ctx.Done():
		_ = s.client.Close()
		return &TransportError{Op: op, Err: ctx.Err()}
	}
}

// selectMailbox issues SELECT/EXAMINE unless the current selection already
// serves the requested access mode.
func (s *IMAPStore) selectMailbox(ctx context.Context, name string, readOnly bool) error {
	if name == "" {
		name = "INBOX"
	}
	if s.selectionSatisfies(name, readOnly) {
		return nil
	}

	err := s.wait(ctx, "select "+name, func() error {
		_, err := s.client.Select(name, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
		return err
	})
	if err != nil {
		return err
	}

	s.selected = name
	s.selectedRead = readOnly
	return nil
}

// selectionSatisfies reports whether the selected mailbox can serve a
// request for name in the given mode. A read-write selection serves
// read-only requests too; an EXAMINE'd mailbox never serves a mutation.
func (s *IMAPStore) selectionSatisfies(name string, readOnly bool) bool {
	return s.selected == name && (readOnly || !s.selectedRead)
}

// storeFlags applies a silent flag mutation. Adding a flag a message
// already carries is a no-op at the protocol level, which gives star its
// idempotency.
func (s *IMAPStore) storeFlags(
	ctx context.Context, uidSet imap.UIDSet, op imap.StoreFlagsOp, flags ...imap.Flag,
) error {
	return s.wait(ctx, "store", func() error {
		return s.client.Store(uidSet, &imap.StoreFlags{
			Op:     op,
			Silent: true,
			Flags:  flags,
		}, nil).Close()
	})
}

// move relocates a message. When the server rejects the MOVE because the
// UID no longer exists (already moved by an earlier attempt), the error is
// swallowed to keep retries safe.
func (s *IMAPStore) move(ctx context.Context, uid uint32, uidSet imap.UIDSet, folder string) error {
	err := s.wait(ctx, "move to "+folder, func() error {
		_, err := s.client.Move(uidSet, folder).Wait()
		return err
	})
	if err != nil {
		if !s.uidExists(ctx, uid) {
			s.log.WithField("uid", uid).Debug("message already gone, treating move as applied")
			return nil
		}
		return err
	}
	return nil
}

// uidExists checks whether the UID is still present in the selected
// mailbox.
func (s *IMAPStore) uidExists(ctx context.Context, uid uint32) bool {
	var searchData *imap.SearchData
	err := s.wait(ctx, "search", func() error {
		var err error
		searchData, err = s.client.UIDSearch(&imap.SearchCriteria{
			UID: []imap.UIDSet{imap.UIDSetNum(imap.UID(uid))},
		}, nil).Wait()
		return err
	})
	if err != nil {
		return true
	}
	return len(searchData.AllUIDs()) > 0
}

// messageFromBuffer builds an immutable snapshot from fetched data.
func messageFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	mailboxName string,
	bodySection *imap.FetchItemBodySection,
) model.Message {
	msg := model.Message{
		UID:    uint32(buf.UID),
		Labels: []string{mailboxName},
	}

	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.Sender = from.Name
			} else {
				msg.Sender = from.Addr()
			}
		}
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			msg.Seen = true
		case imap.FlagFlagged:
			msg.Starred = true
		}
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		snippet, hasAttachments := extractSnippet(raw)
		msg.Snippet = snippet
		msg.HasAttachments = hasAttachments
	}

	return msg
}
