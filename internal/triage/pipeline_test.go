package triage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"mailsift/internal/mailbox"
	"mailsift/internal/model"
)

// stubClassifier maps UIDs to fixed categories and counts calls.
type stubClassifier struct {
	mu         sync.Mutex
	categories map[uint32]string
	calls      []string
	suggest    []model.Suggestion
	suggestErr error
}

func (c *stubClassifier) Classify(
	_ context.Context,
	messages []model.Message,
	_ model.RuleSet,
	modelID string,
) ([]model.Classification, error) {
	c.mu.Lock()
	c.calls = append(c.calls, modelID)
	c.mu.Unlock()

	out := make([]model.Classification, 0, len(messages))
	for _, m := range messages {
		category, ok := c.categories[m.UID]
		if !ok {
			category = model.CategoryUnclassified
		}
		out = append(out, model.Classification{
			MessageUID: m.UID,
			Category:   category,
			Model:      modelID,
			Confidence: 0.9,
		})
	}
	return out, nil
}

func (c *stubClassifier) SuggestCategories(
	context.Context, []model.Message, model.RuleSet, []model.Classification, string,
) ([]model.Suggestion, error) {
	return c.suggest, c.suggestErr
}

// memLedger is an in-memory Ledger double.
type memLedger struct {
	processed map[uint32]bool
	marked    []uint32
	runs      []*model.RunReport
}

func (l *memLedger) ProcessedUIDs(context.Context, string) (map[uint32]bool, error) {
	return l.processed, nil
}

func (l *memLedger) MarkProcessed(_ context.Context, _ string, uids []uint32) error {
	l.marked = append(l.marked, uids...)
	return nil
}

func (l *memLedger) RecordRun(_ context.Context, report *model.RunReport) error {
	l.runs = append(l.runs, report)
	return nil
}

func TestProcessSkipsAlreadyProcessedMessages(t *testing.T) {
	store := &fakeStore{
		labels:   planLabels,
		messages: testMessages(),
	}
	classifier := &stubClassifier{categories: map[uint32]string{
		1: "urgent", 2: "urgent", 3: "urgent",
	}}
	led := &memLedger{processed: map[uint32]bool{2: true}}

	pipeline := NewPipeline(store, classifier, led, planRules, fastRetry)
	report, err := pipeline.Process(context.Background(), ProcessOptions{
		Criteria: mailbox.FetchCriteria{Mailbox: "INBOX"},
	})

	assert.NoError(t, err)
	assert.Len(t, report.Entries, 2)
	for _, e := range report.Entries {
		assert.NotEqual(t, uint32(2), e.MessageUID)
	}
}

func TestProcessMarksOnlyAppliedMessages(t *testing.T) {
	store := &fakeStore{
		labels:   planLabels,
		messages: testMessages(),
		failUID:  map[uint32]error{3: errTransport()},
	}
	classifier := &stubClassifier{categories: map[uint32]string{
		1: "urgent", 2: "urgent", 3: "urgent",
	}}
	led := &memLedger{processed: map[uint32]bool{}}

	pipeline := NewPipeline(store, classifier, led, planRules, fastRetry)
	report, err := pipeline.Process(context.Background(), ProcessOptions{
		Criteria: mailbox.FetchCriteria{Mailbox: "INBOX"},
	})

	assert.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1, 2}, led.marked)
	assert.Len(t, led.runs, 1)
	assert.Equal(t, report.ID, led.runs[0].ID)
}

func TestProcessDryRunMarksNothing(t *testing.T) {
	store := &fakeStore{
		labels:   planLabels,
		messages: testMessages(),
	}
	classifier := &stubClassifier{
		categories: map[uint32]string{1: "spam", 2: "spam", 3: "spam"},
		suggest:    []model.Suggestion{{Name: "travel", Action: model.ActionMove}},
	}
	led := &memLedger{processed: map[uint32]bool{}}

	pipeline := NewPipeline(store, classifier, led, planRules, fastRetry)
	report, err := pipeline.Process(context.Background(), ProcessOptions{
		Criteria: mailbox.FetchCriteria{Mailbox: "INBOX"},
		DryRun:   true,
	})

	assert.NoError(t, err)
	assert.Empty(t, led.marked)
	assert.Empty(t, store.calls())
	assert.Len(t, report.Suggestions, 1)
	// Dry runs are still recorded in the audit trail.
	assert.Len(t, led.runs, 1)
}

func TestFetchExcludesStarredMessages(t *testing.T) {
	messages := testMessages()
	messages[1].Starred = true
	store := &fakeStore{labels: planLabels, messages: messages}
	led := &memLedger{processed: map[uint32]bool{}}

	pipeline := NewPipeline(store, &stubClassifier{}, led, planRules, fastRetry)
	got, err := pipeline.Fetch(context.Background(), mailbox.FetchCriteria{Mailbox: "INBOX"})

	assert.NoError(t, err)
	assert.Len(t, got, 2)
	for _, m := range got {
		assert.False(t, m.Starred)
	}
}

func TestProcessEmptyMailbox(t *testing.T) {
	store := &fakeStore{labels: planLabels}
	classifier := &stubClassifier{}
	led := &memLedger{processed: map[uint32]bool{}}

	pipeline := NewPipeline(store, classifier, led, planRules, fastRetry)
	report, err := pipeline.Process(context.Background(), ProcessOptions{
		Criteria: mailbox.FetchCriteria{Mailbox: "INBOX"},
	})

	assert.NoError(t, err)
	assert.Empty(t, report.Entries)
	assert.Empty(t, classifier.calls)
}

func TestProcessEndToEnd(t *testing.T) {
	rules := model.RuleSet{
		Rules: []model.Rule{
			{Name: "newsletters", Action: model.ActionMove, TargetFolder: "Newsletters"},
			{Name: "spam", Action: model.ActionTrash},
		},
	}
	classifier := &stubClassifier{categories: map[uint32]string{
		1: "newsletters",
		2: "spam",
		3: model.CategoryUnclassified,
	}}

	run := func(t *testing.T, labels []string) *model.RunReport {
		t.Helper()
		store := &fakeStore{labels: labels, messages: testMessages()}
		led := &memLedger{processed: map[uint32]bool{}}
		pipeline := NewPipeline(store, classifier, led, rules, fastRetry)

		report, err := pipeline.Process(context.Background(), ProcessOptions{
			Criteria: mailbox.FetchCriteria{Mailbox: "INBOX"},
		})
		assert.NoError(t, err)
		return report
	}

	t.Run("all targets present", func(t *testing.T) {
		report := run(t, []string{"INBOX", "Newsletters"})

		byUID := entriesByUID(report)
		assert.Equal(t, model.OutcomeApplied, byUID[1].Outcome)
		assert.Equal(t, "Newsletters", byUID[1].TargetFolder)
		assert.Equal(t, model.OutcomeApplied, byUID[2].Outcome)
		assert.Equal(t, model.ActionTrash, byUID[2].Action)
		assert.Equal(t, model.OutcomeApplied, byUID[3].Outcome)
		assert.Equal(t, model.ActionNone, byUID[3].Action)
	})

	t.Run("move target missing", func(t *testing.T) {
		report := run(t, []string{"INBOX"})

		byUID := entriesByUID(report)
		assert.Equal(t, model.OutcomeSkipped, byUID[1].Outcome)
		assert.Contains(t, byUID[1].Detail, "Newsletters")
		assert.Equal(t, model.OutcomeApplied, byUID[2].Outcome)
		assert.Equal(t, model.OutcomeApplied, byUID[3].Outcome)
	})
}

func TestFetchRetriesTransientTransportErrors(t *testing.T) {
	store := &fakeStore{
		labels:    planLabels,
		messages:  testMessages(),
		fetchFail: 1,
	}
	pipeline := NewPipeline(store, &stubClassifier{}, nil, planRules, fastRetry)

	got, err := pipeline.Fetch(context.Background(), mailbox.FetchCriteria{Mailbox: "INBOX"})

	assert.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFetchFailsAfterRetriesExhausted(t *testing.T) {
	store := &fakeStore{
		messages:  testMessages(),
		fetchFail: fastRetry.MaxAttempts,
	}
	pipeline := NewPipeline(store, &stubClassifier{}, nil, planRules, fastRetry)

	_, err := pipeline.Fetch(context.Background(), mailbox.FetchCriteria{Mailbox: "INBOX"})

	assert.Error(t, err)
	assert.True(t, mailbox.IsTransport(err))
}

func TestProcessRetriesLabelListing(t *testing.T) {
	store := &fakeStore{
		labels:   planLabels,
		messages: testMessages(),
		listFail: 1,
	}
	classifier := &stubClassifier{categories: map[uint32]string{
		1: "urgent", 2: "urgent", 3: "urgent",
	}}

	pipeline := NewPipeline(store, classifier, nil, planRules, fastRetry)
	report, err := pipeline.Process(context.Background(), ProcessOptions{
		Criteria: mailbox.FetchCriteria{Mailbox: "INBOX"},
	})

	assert.NoError(t, err)
	assert.Len(t, report.Entries, 3)
}

func errTransport() error {
	return &mailbox.TransportError{Op: "move", Err: assert.AnError}
}
