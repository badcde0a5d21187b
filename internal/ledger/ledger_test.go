package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"mailsift/internal/model"
	"mailsift/tests/testutil"
)

func TestMarkProcessedRoundTrip(t *testing.T) {
	led := testutil.NewTestLedger(t)
	ctx := context.Background()

	err := led.MarkProcessed(ctx, "INBOX", []uint32{1, 2, 3})
	assert.NoError(t, err)

	uids, err := led.ProcessedUIDs(ctx, "INBOX")
	assert.NoError(t, err)
	assert.Equal(t, map[uint32]bool{1: true, 2: true, 3: true}, uids)
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	led := testutil.NewTestLedger(t)
	ctx := context.Background()

	assert.NoError(t, led.MarkProcessed(ctx, "INBOX", []uint32{7}))
	assert.NoError(t, led.MarkProcessed(ctx, "INBOX", []uint32{7}))

	uids, err := led.ProcessedUIDs(ctx, "INBOX")
	assert.NoError(t, err)
	assert.Len(t, uids, 1)
}

func TestProcessedUIDsAreScopedPerMailbox(t *testing.T) {
	led := testutil.NewTestLedger(t)
	ctx := context.Background()

	assert.NoError(t, led.MarkProcessed(ctx, "INBOX", []uint32{1}))
	assert.NoError(t, led.MarkProcessed(ctx, "Archive", []uint32{2}))

	uids, err := led.ProcessedUIDs(ctx, "INBOX")
	assert.NoError(t, err)
	assert.Equal(t, map[uint32]bool{1: true}, uids)
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	led := testutil.NewTestLedger(t)
	ctx := context.Background()

	now := time.Now()
	older := &model.RunReport{
		ID:         uuid.NewString(),
		Mailbox:    "INBOX",
		Model:      "claude-haiku-4-5",
		DryRun:     true,
		StartedAt:  now.Add(-time.Hour),
		FinishedAt: now.Add(-time.Hour).Add(20 * time.Second),
		Entries: []model.ReportEntry{
			{MessageUID: 1, Subject: "digest", Category: "newsletters", Action: model.ActionArchive, Outcome: model.OutcomeSimulated},
		},
	}
	newer := &model.RunReport{
		ID:         uuid.NewString(),
		Mailbox:    "INBOX",
		Model:      "claude-sonnet-4-5",
		StartedAt:  now,
		FinishedAt: now.Add(15 * time.Second),
		Entries: []model.ReportEntry{
			{MessageUID: 2, Subject: "invoice", Category: "receipts", Action: model.ActionMove, TargetFolder: "Receipts", Outcome: model.OutcomeApplied},
			{MessageUID: 3, Subject: "prize", Category: "spam", Action: model.ActionTrash, Outcome: model.OutcomeFailed, Detail: "connection reset"},
		},
	}

	assert.NoError(t, led.RecordRun(ctx, older))
	assert.NoError(t, led.RecordRun(ctx, newer))

	runs, err := led.RecentRuns(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, runs, 2)

	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Entries)
	assert.False(t, runs[0].DryRun)

	assert.Equal(t, older.ID, runs[1].ID)
	assert.Equal(t, 1, runs[1].Entries)
	assert.True(t, runs[1].DryRun)
}

func TestRecentRunsRespectsLimit(t *testing.T) {
	led := testutil.NewTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		report := &model.RunReport{
			ID:         uuid.NewString(),
			Mailbox:    "INBOX",
			StartedAt:  time.Now().Add(time.Duration(i) * time.Minute),
			FinishedAt: time.Now().Add(time.Duration(i)*time.Minute + time.Second),
		}
		assert.NoError(t, led.RecordRun(ctx, report))
	}

	runs, err := led.RecentRuns(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, runs, 2)
}
