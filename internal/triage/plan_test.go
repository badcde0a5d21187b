package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mailsift/internal/model"
)

var planRules = model.RuleSet{
	Rules: []model.Rule{
		{Name: "urgent", Action: model.ActionStar},
		{Name: "newsletters", Action: model.ActionArchive, OlderThanMinutes: 60},
		{Name: "receipts", Action: model.ActionMove, TargetFolder: "Receipts"},
		{Name: "spam", Action: model.ActionTrash},
	},
}

var planLabels = []string{"INBOX", "Receipts", "[Gmail]/Trash"}

func TestBuildPlanMapsCategoriesToActions(t *testing.T) {
	now := time.Now()
	messages := []model.Message{
		{UID: 1, Date: now.Add(-2 * time.Hour)},
		{UID: 2, Date: now.Add(-2 * time.Hour)},
		{UID: 3, Date: now.Add(-2 * time.Hour)},
	}
	classifications := []model.Classification{
		{MessageUID: 1, Category: "urgent"},
		{MessageUID: 2, Category: "receipts"},
		{MessageUID: 3, Category: "spam"},
	}

	plan := BuildPlan(classifications, messages, planRules, planLabels, now)

	assert.Len(t, plan, 3)
	assert.Equal(t, model.ActionStar, plan[0].Action)
	assert.Equal(t, model.ActionMove, plan[1].Action)
	assert.Equal(t, "Receipts", plan[1].TargetFolder)
	assert.Equal(t, model.ActionTrash, plan[2].Action)
	for _, pa := range plan {
		assert.Equal(t, model.PlanOK, pa.Status)
	}
}

func TestBuildPlanPreservesInputOrder(t *testing.T) {
	now := time.Now()
	var messages []model.Message
	var classifications []model.Classification
	for uid := uint32(10); uid > 0; uid-- {
		messages = append(messages, model.Message{UID: uid, Date: now.Add(-time.Hour)})
		classifications = append(classifications, model.Classification{MessageUID: uid, Category: "urgent"})
	}

	plan := BuildPlan(classifications, messages, planRules, planLabels, now)

	assert.Len(t, plan, 10)
	for i, pa := range plan {
		assert.Equal(t, classifications[i].MessageUID, pa.MessageUID)
	}
}

func TestBuildPlanBlocksMissingTargetLabel(t *testing.T) {
	now := time.Now()
	messages := []model.Message{{UID: 1, Date: now.Add(-time.Hour)}}
	classifications := []model.Classification{{MessageUID: 1, Category: "receipts"}}

	plan := BuildPlan(classifications, messages, planRules, []string{"INBOX"}, now)

	assert.Equal(t, model.PlanBlocked, plan[0].Status)
	assert.Contains(t, plan[0].BlockReason, "Receipts")
	assert.Equal(t, model.ActionMove, plan[0].Action)
}

func TestBuildPlanUnknownCategoryGetsNone(t *testing.T) {
	now := time.Now()
	messages := []model.Message{{UID: 1, Date: now}, {UID: 2, Date: now}}
	classifications := []model.Classification{
		{MessageUID: 1, Category: model.CategoryUnclassified},
		{MessageUID: 2, Category: "made-up"},
	}

	plan := BuildPlan(classifications, messages, planRules, planLabels, now)

	for _, pa := range plan {
		assert.Equal(t, model.ActionNone, pa.Action)
		assert.Equal(t, model.PlanOK, pa.Status)
	}
}

func TestBuildPlanAgeGateHoldsFreshMessages(t *testing.T) {
	now := time.Now()
	messages := []model.Message{
		{UID: 1, Date: now.Add(-10 * time.Minute)},
		{UID: 2, Date: now.Add(-90 * time.Minute)},
	}
	classifications := []model.Classification{
		{MessageUID: 1, Category: "newsletters"},
		{MessageUID: 2, Category: "newsletters"},
	}

	plan := BuildPlan(classifications, messages, planRules, planLabels, now)

	assert.Equal(t, model.ActionNone, plan[0].Action)
	assert.Equal(t, model.ActionArchive, plan[1].Action)
}

func TestBuildPlanSkipsAlreadyStarred(t *testing.T) {
	now := time.Now()
	messages := []model.Message{{UID: 1, Date: now.Add(-time.Hour), Starred: true}}
	classifications := []model.Classification{{MessageUID: 1, Category: "urgent"}}

	plan := BuildPlan(classifications, messages, planRules, planLabels, now)

	assert.Equal(t, model.ActionNone, plan[0].Action)
}
