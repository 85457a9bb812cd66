package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
)

// The summary is one short paragraph; a tight token cap keeps latency and
// cost flat regardless of result size.
const (
	summaryMaxTokens   int32   = 200
	summaryTemperature float32 = 0.2
)

const summarySystemPrompt = `You summarize grocery search results for the shopper who asked for them.
Write 1-3 sentences grounded only in the provided result names, in the voice of a friendly store assistant.
If the results contain recipes, summarize the recipes; otherwise summarize the key products that fit the query.`

// Generator is the single generation call the pipeline stages need.
type Generator interface {
	GenerateText(ctx context.Context, req llm.Request) (string, error)
}

// ResultSummarizer produces the natural-language message accompanying a
// structured result. Only display names reach the model; full records stay
// out of the prompt.
type ResultSummarizer struct {
	gen    Generator
	logger log.Logger
}

// NewSummarizer creates a ResultSummarizer. A nil logger falls back to a
// no-op logger.
func NewSummarizer(gen Generator, logger log.Logger) *ResultSummarizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ResultSummarizer{gen: gen, logger: logger}
}

// Summarize issues one capped generation call over the result's display
// names. An empty partial yields an empty message without a model call.
func (s *ResultSummarizer) Summarize(ctx context.Context, query string, p Partial) (string, error) {
	names := displayNames(p)
	if len(names) == 0 {
		return "", nil
	}

	prompt := fmt.Sprintf("user_query: %s\nresults: %s", query, strings.Join(names, ", "))
	return s.gen.GenerateText(ctx, llm.Request{
		System:          summarySystemPrompt,
		Prompt:          prompt,
		Temperature:     summaryTemperature,
		MaxOutputTokens: summaryMaxTokens,
	})
}

// displayNames extracts recipe names, or product titles when there are no
// recipes, preserving result order.
func displayNames(p Partial) []string {
	if len(p.Recipes) > 0 {
		names := make([]string, 0, len(p.Recipes))
		for _, r := range p.Recipes {
			names = append(names, r.Name)
		}
		return names
	}

	var names []string
	for _, g := range p.Products {
		for _, prod := range g.Products {
			names = append(names, prod.Title)
		}
	}
	return names
}
