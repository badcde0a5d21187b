// Package classify sends message batches to the Claude Messages API and
// turns loosely-typed model output into constrained category decisions.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mailsift/internal/model"
	"mailsift/internal/retry"
)

// requestTimeout bounds a single model backend call.
const requestTimeout = 90 * time.Second

// Options configures a Classifier.
type Options struct {
	APIKey    string
	Model     string
	MaxTokens int

	// BatchSize is the maximum number of messages per request.
	BatchSize int

	// Workers bounds how many batches are classified concurrently.
	Workers int

	// Retry is the per-batch retry policy.
	Retry retry.Policy

	// BaseURL overrides the API endpoint (tests).
	BaseURL string

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Classifier classifies messages against a rule set using one or more model
// identifiers. It is safe for concurrent use.
type Classifier struct {
	apiKey    string
	model     string
	maxTokens int
	batchSize int
	workers   int
	retry     retry.Policy
	baseURL   string
	client    *http.Client
	log       *logrus.Entry

	mu    sync.Mutex
	usage Usage
}

// New creates a Classifier, filling unset options with defaults.
func New(opts Options) *Classifier {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}

	return &Classifier{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		retry:     opts.Retry,
		baseURL:   opts.BaseURL,
		client:    opts.HTTPClient,
		log:       logrus.WithField("component", "classify"),
	}
}

// DefaultModel returns the model used when a call passes an empty model ID.
func (c *Classifier) DefaultModel() string { return c.model }

// Usage returns the tokens consumed so far across all calls.
func (c *Classifier) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Classifier) addUsage(u Usage) {
	c.mu.Lock()
	c.usage.InputTokens += u.InputTokens
	c.usage.OutputTokens += u.OutputTokens
	c.mu.Unlock()
}

// Ping verifies the API key with a minimal request.
func (c *Classifier) Ping(ctx context.Context) error {
	_, _, err := c.callAPI(ctx, c.model, "", "Reply with the single word: ok", 16)
	return err
}

// Classify returns exactly one Classification per input message, in input
// order. Batches are classified concurrently; a batch that exhausts its
// retries degrades every message in it to the unclassified category with an
// error rationale instead of failing the run.
func (c *Classifier) Classify(
	ctx context.Context,
	messages []model.Message,
	rules model.RuleSet,
	modelID string,
) ([]model.Classification, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if modelID == "" {
		modelID = c.model
	}

	batches := chunk(messages, c.batchSize)
	results := make([][]model.Classification, len(batches))

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []model.Message) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = c.classifyBatch(ctx, batch, rules, modelID)
		}(i, batch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Classification, 0, len(messages))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// classifyBatch classifies one batch with bounded retries, degrading to
// unclassified on exhaustion. It always returns one entry per message.
func (c *Classifier) classifyBatch(
	ctx context.Context,
	batch []model.Message,
	rules model.RuleSet,
	modelID string,
) []model.Classification {
	var parsed classificationResult

	err := c.retry.Do(ctx, func() error {
		result, reqErr := c.requestClassifications(ctx, batch, rules, modelID)
		if reqErr != nil {
			c.log.WithError(reqErr).WithField("model", modelID).
				Warn("classification request failed")
			return reqErr
		}
		parsed = result
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"model": modelID,
			"batch": len(batch),
		}).Error("batch classification exhausted retries")

		out := make([]model.Classification, 0, len(batch))
		for _, m := range batch {
			out = append(out, model.Classification{
				MessageUID: m.UID,
				Category:   model.CategoryUnclassified,
				Model:      modelID,
				Rationale:  fmt.Sprintf("classification failed: %v", err),
			})
		}
		return out
	}

	byUID := make(map[uint32]wireClassification, len(parsed.Classifications))
	for _, wc := range parsed.Classifications {
		byUID[wc.UID] = wc
	}

	known := make(map[string]bool, len(rules.Rules)+1)
	for _, name := range rules.CategoryNames() {
		known[name] = true
	}
	known[model.CategoryUnclassified] = true

	out := make([]model.Classification, 0, len(batch))
	for _, m := range batch {
		wc, ok := byUID[m.UID]
		if !ok {
			out = append(out, model.Classification{
				MessageUID: m.UID,
				Category:   model.CategoryUnclassified,
				Model:      modelID,
				Rationale:  "model returned no result for this message",
			})
			continue
		}

		category := wc.Category
		if !known[category] {
			// Constrain free-form model output at the boundary.
			c.log.WithFields(logrus.Fields{
				"uid":      m.UID,
				"category": category,
			}).Warn("coercing unknown category to unclassified")
			category = model.CategoryUnclassified
		}

		out = append(out, model.Classification{
			MessageUID: m.UID,
			Category:   category,
			Model:      modelID,
			Confidence: wc.Confidence,
			Rationale:  wc.Reasoning,
		})
	}
	return out
}

// requestClassifications performs one model call for one batch.
func (c *Classifier) requestClassifications(
	ctx context.Context,
	batch []model.Message,
	rules model.RuleSet,
	modelID string,
) (classificationResult, error) {
	system := buildClassifySystem(rules)
	user := buildClassifyUser(batch)

	// Roughly 100 output tokens per message of structured JSON.
	maxTokens := c.maxTokens
	if need := len(batch)*100 + 256; need > maxTokens {
		maxTokens = need
	}

	text, _, err := c.callAPI(ctx, modelID, system, user, maxTokens)
	if err != nil {
		return classificationResult{}, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return classificationResult{}, err
	}

	var result classificationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return classificationResult{}, fmt.Errorf("decoding classifications: %w", err)
	}

	return result, nil
}

// SuggestCategories asks the model for new categories that would cover the
// batch better. Only called in dry-run mode; a failure here degrades the
// report, never the run.
func (c *Classifier) SuggestCategories(
	ctx context.Context,
	messages []model.Message,
	rules model.RuleSet,
	classifications []model.Classification,
	modelID string,
) ([]model.Suggestion, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if modelID == "" {
		modelID = c.model
	}

	system := buildSuggestSystem(rules)
	user := buildSuggestUser(messages, classifications)

	text, _, err := c.callAPI(ctx, modelID, system, user, 1024)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var result suggestionsResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decoding suggestions: %w", err)
	}

	out := make([]model.Suggestion, 0, len(result.Suggestions))
	for _, ws := range result.Suggestions {
		action, err := model.ParseActionKind(ws.Action)
		if err != nil {
			action = model.ActionNone
		}
		out = append(out, model.Suggestion{
			Name:        ws.Name,
			Description: ws.Description,
			Action:      action,
			ExampleUIDs: ws.ExampleUIDs,
			Reasoning:   ws.Reasoning,
		})
	}
	return out, nil
}

// chunk splits messages into batches of at most size.
func chunk(messages []model.Message, size int) [][]model.Message {
	var batches [][]model.Message
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		batches = append(batches, messages[start:end])
	}
	return batches
}
