package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"mailsift/internal/model"
)

// messageSummary is the per-message payload sent to the model.
type messageSummary struct {
	UID            uint32 `json:"uid"`
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	Date           string `json:"date,omitempty"`
	Snippet        string `json:"snippet"`
	HasAttachments bool   `json:"has_attachments"`
}

// wireClassification mirrors the JSON the model is asked to produce for
// each message.
type wireClassification struct {
	UID        uint32  `json:"uid"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type classificationResult struct {
	Classifications []wireClassification `json:"classifications"`
}

// wireSuggestion mirrors the JSON shape of a suggested new category.
type wireSuggestion struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
	ExampleUIDs []uint32 `json:"example_uids"`
	Reasoning   string   `json:"reasoning"`
}

type suggestionsResult struct {
	Suggestions []wireSuggestion `json:"suggestions"`
}

// buildClassifySystem assembles the full system prompt: the user's base
// guidance, the category list, and the strict output contract.
func buildClassifySystem(rules model.RuleSet) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(rules.SystemPrompt))
	sb.WriteString("\n\nAvailable categories:\n")
	for _, r := range rules.Rules {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Name, r.Description))
	}

	sb.WriteString("\nFor each email, assign exactly one category from the list ")
	sb.WriteString("above, a confidence score between 0 and 1, and a brief ")
	sb.WriteString("reasoning. Return results for ALL emails.\n\n")
	sb.WriteString("Respond with ONLY a JSON object of this shape, no prose:\n")
	sb.WriteString(`{"classifications":[{"uid":1,"category":"...",` +
		`"confidence":0.9,"reasoning":"..."}]}`)

	return sb.String()
}

// buildClassifyUser renders the batch as a JSON array of summaries.
func buildClassifyUser(messages []model.Message) string {
	summaries := make([]messageSummary, 0, len(messages))
	for _, m := range messages {
		s := messageSummary{
			UID:            m.UID,
			Subject:        m.Subject,
			Sender:         m.Sender,
			Snippet:        m.Snippet,
			HasAttachments: m.HasAttachments,
		}
		if !m.Date.IsZero() {
			s.Date = m.Date.Format("2006-01-02 15:04")
		}
		summaries = append(summaries, s)
	}

	payload, _ := json.MarshalIndent(summaries, "", "  ")
	return "Classify the following emails:\n\n" + string(payload)
}

// buildSuggestSystem assembles the system prompt for the dry-run category
// suggestion call.
func buildSuggestSystem(rules model.RuleSet) string {
	var sb strings.Builder
	sb.WriteString("You are an email triage assistant. ")
	sb.WriteString("The user has these existing categories:\n")
	for _, r := range rules.Rules {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Name, r.Description))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(rules.SuggestionsPrompt))
	sb.WriteString("\n\nOnly suggest categories clearly distinct from the ")
	sb.WriteString("existing ones. If the existing categories already cover ")
	sb.WriteString("everything well, return an empty list.\n\n")
	sb.WriteString("Respond with ONLY a JSON object of this shape, no prose:\n")
	sb.WriteString(`{"suggestions":[{"name":"...","description":"...",` +
		`"action":"none|star|move|trash|archive",` +
		`"example_uids":[1],"reasoning":"..."}]}`)

	return sb.String()
}

// buildSuggestUser renders the batch plus how it was classified.
func buildSuggestUser(
	messages []model.Message,
	classifications []model.Classification,
) string {
	byUID := make(map[uint32]model.Message, len(messages))
	for _, m := range messages {
		byUID[m.UID] = m
	}

	type classifiedLine struct {
		UID        uint32  `json:"uid"`
		Subject    string  `json:"subject"`
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}

	lines := make([]classifiedLine, 0, len(classifications))
	for _, c := range classifications {
		subject := "?"
		if m, ok := byUID[c.MessageUID]; ok {
			subject = m.Subject
		}
		lines = append(lines, classifiedLine{
			UID:        c.MessageUID,
			Subject:    subject,
			Category:   c.Category,
			Confidence: c.Confidence,
			Reasoning:  c.Rationale,
		})
	}

	classified, _ := json.MarshalIndent(lines, "", "  ")

	return buildClassifyUser(messages) +
		"\n\nHere is how these emails were classified:\n\n" +
		string(classified)
}

// extractJSON pulls the first JSON object out of a model reply, tolerating
// code fences and surrounding prose.
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model reply")
	}

	return trimmed[start : end+1], nil
}
