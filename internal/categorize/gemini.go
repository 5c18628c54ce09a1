package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/llm"
	"github.com/NathanBvumbwe/peza-ganyu/internal/observability"
	"github.com/NathanBvumbwe/peza-ganyu/internal/prompts"
	"github.com/NathanBvumbwe/peza-ganyu/internal/schemas"
	"github.com/NathanBvumbwe/peza-ganyu/internal/validation"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of titles sent per LLM request.
const DefaultBatchSize = 50

type classification struct {
	Labels []string `json:"labels"`
}

// GeminiClassifier labels titles with an LLM prompt.
type GeminiClassifier struct {
	client    llm.Client
	batchSize int
	logger    *zap.Logger
}

// NewGeminiClassifier creates a classifier that sends batchSize titles per request.
func NewGeminiClassifier(client llm.Client, batchSize int, logger *zap.Logger) *GeminiClassifier {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &GeminiClassifier{client: client, batchSize: batchSize, logger: observability.OrNop(logger)}
}

// Categorize labels inputs batch by batch. Any failed batch fails the call,
// so callers never see a partially labelled set.
func (g *GeminiClassifier) Categorize(ctx context.Context, inputs []Input) ([]string, error) {
	labels := make([]string, 0, len(inputs))
	for start := 0; start < len(inputs); start += g.batchSize {
		end := min(start+g.batchSize, len(inputs))
		batch, err := g.classifyBatch(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		labels = append(labels, batch...)
	}
	return labels, nil
}

func (g *GeminiClassifier) classifyBatch(ctx context.Context, inputs []Input) ([]string, error) {
	for _, in := range inputs {
		validation.LogInjectionWarning(g.logger, validation.CheckBasicHeuristics(in.Title), "posting "+strconv.FormatInt(in.ID, 10))
	}

	prompt, err := BuildPrompt(inputs)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, &ClassificationError{Message: "LLM request failed", Cause: err}
	}

	if err := schemas.Validate(schemas.Classification, resp); err != nil {
		g.logger.Warn("classification response rejected",
			zap.String("response", observability.TruncateForLog(resp, 200)), zap.Error(err))
		return nil, &ClassificationError{Message: "response does not match schema", Cause: err}
	}

	var out classification
	if err := json.Unmarshal([]byte(resp), &out); err != nil {
		return nil, &ClassificationError{Message: "failed to parse response", Cause: err}
	}
	if len(out.Labels) != len(inputs) {
		return nil, &ClassificationError{
			Message: fmt.Sprintf("got %d labels for %d titles", len(out.Labels), len(inputs)),
		}
	}

	labels := make([]string, len(out.Labels))
	for i, l := range out.Labels {
		labels[i] = Canonical(l)
		if labels[i] == Other && !strings.EqualFold(strings.TrimSpace(l), Other) {
			g.logger.Debug("mapped unknown label to Other",
				zap.Int64("posting_id", inputs[i].ID), zap.String("label", l))
		}
	}
	return labels, nil
}

// BuildPrompt renders the classification prompt for a batch of titles.
// Titles are scraped content, so they are stripped of injection phrases and
// quoted.
func BuildPrompt(inputs []Input) (string, error) {
	var cats strings.Builder
	for _, c := range Categories {
		cats.WriteString("- ")
		cats.WriteString(c)
		cats.WriteString("\n")
	}

	var titles strings.Builder
	for i, in := range inputs {
		titles.WriteString(strconv.Itoa(i))
		titles.WriteString(": ")
		titles.WriteString(validation.StripInjectionAttempts(in.Title))
		titles.WriteString("\n")
	}

	prompt, err := prompts.Render("categorize.json", "classify-job-titles", map[string]string{
		"Categories": strings.TrimRight(cats.String(), "\n"),
		"Titles":     validation.QuoteExternalContentWithLabel(strings.TrimRight(titles.String(), "\n"), "job titles"),
		"Count":      strconv.Itoa(len(inputs)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build classification prompt: %w", err)
	}
	return prompt, nil
}
