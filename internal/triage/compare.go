package triage

import (
	"context"

	"mailsift/internal/model"
)

// Comparator classifies the same messages with two models and reports where
// they disagree. It never touches the mailbox.
type Comparator struct {
	classifier Classifier
}

// NewComparator creates a Comparator backed by classifier.
func NewComparator(classifier Classifier) *Comparator {
	return &Comparator{classifier: classifier}
}

// Compare classifies messages with modelA and modelB and pairs the results
// per message, in input order.
func (c *Comparator) Compare(
	ctx context.Context,
	messages []model.Message,
	rules model.RuleSet,
	modelA, modelB string,
) (*model.ComparisonReport, error) {
	clsA, err := c.classifier.Classify(ctx, messages, rules, modelA)
	if err != nil {
		return nil, err
	}
	clsB, err := c.classifier.Classify(ctx, messages, rules, modelB)
	if err != nil {
		return nil, err
	}

	byUIDA := indexByUID(clsA)
	byUIDB := indexByUID(clsB)

	report := &model.ComparisonReport{ModelA: modelA, ModelB: modelB}
	for _, m := range messages {
		a := byUIDA[m.UID]
		b := byUIDB[m.UID]
		report.Rows = append(report.Rows, model.ComparisonRow{
			MessageUID:  m.UID,
			Subject:     m.Subject,
			CategoryA:   a.Category,
			CategoryB:   b.Category,
			ConfidenceA: a.Confidence,
			ConfidenceB: b.Confidence,
			Agree:       a.Category == b.Category,
		})
	}
	return report, nil
}

func indexByUID(classifications []model.Classification) map[uint32]model.Classification {
	byUID := make(map[uint32]model.Classification, len(classifications))
	for _, c := range classifications {
		byUID[c.MessageUID] = c
	}
	return byUID
}
