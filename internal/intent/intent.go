// Package intent classifies a user query into one of the fixed pipeline
// intents. Classification happens exactly once per turn; the chosen intent
// selects which handler builds the response.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
)

// ErrClassification indicates the intent could not be determined because the
// generation call failed. Unrecognized but well-formed model output is not an
// error; it maps to Other.
var ErrClassification = errors.New("intent classification failed")

// Intent selects which handler processes a query.
type Intent string

const (
	// GenericProductSearch covers queries for one single type of product.
	GenericProductSearch Intent = "generic_product_search"

	// ProductRecommendations covers queries asking for product options
	// around an occasion, dish, or meal.
	ProductRecommendations Intent = "product_recommendations"

	// Recipes covers recipe and meal-plan queries.
	Recipes Intent = "recipes"

	// Other covers everything the pipeline has no handler for.
	Other Intent = "other"
)

const classifierSystemPrompt = `You classify grocery-shopping queries into exactly one intent label.

Labels:
- generic_product_search: the user wants one single type of product, described by name, feature, category, or as a substitute for something.
- product_recommendations: the user wants product options or pairings for an occasion, dish, or meal.
- recipes: the user wants recipes, meal suggestions, or a multi-day meal plan, possibly constrained by ingredients on hand or dietary needs.
- other: the query fits none of the above.

Examples:
query: apples
intent: generic_product_search

query: what wines pair well with grilled salmon
intent: product_recommendations

query: kid-friendly dinners for a family of 4 on a budget
intent: recipes

Respond with the label only, nothing else.`

// Generator is the single generation call the classifier needs.
type Generator interface {
	GenerateText(ctx context.Context, req llm.Request) (string, error)
}

// Classifier maps queries to intents with one constrained generation call.
type Classifier struct {
	gen    Generator
	logger log.Logger
}

// NewClassifier creates a Classifier. A nil logger falls back to a no-op
// logger.
func NewClassifier(gen Generator, logger log.Logger) *Classifier {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Classifier{gen: gen, logger: logger}
}

// Classify returns the intent for the query. A failed generation call is an
// ErrClassification; model output outside the label set maps to Other.
func (c *Classifier) Classify(ctx context.Context, query string) (Intent, error) {
	text, err := c.gen.GenerateText(ctx, llm.Request{
		System: classifierSystemPrompt,
		Prompt: query,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}

	it := parse(text)
	if it == Other {
		c.logger.Debug("query classified as other", "query", query, "raw", text)
	}
	return it, nil
}

// parse normalizes model output to an Intent. Models occasionally echo the
// label with prose around it, so a substring match backs up the exact match.
func parse(text string) Intent {
	label := strings.ToLower(strings.TrimSpace(text))
	label = strings.Trim(label, "\"'`.")

	known := []Intent{GenericProductSearch, ProductRecommendations, Recipes, Other}
	for _, it := range known {
		if label == string(it) {
			return it
		}
	}
	for _, it := range known {
		if strings.Contains(label, string(it)) {
			return it
		}
	}
	return Other
}
