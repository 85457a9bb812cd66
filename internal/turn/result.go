// Package turn implements the conversational pipeline core: the single-query
// state machine (guardrail, classification, dispatch, summarization), the
// session wrapper that detects and rewrites follow-up queries, and the
// bounded conversation history both operate on.
package turn

import (
	"context"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/intent"
	"github.com/cartsmith/cartsmith/internal/recipe"
)

// Partial is a handler's output before summarization. At most one of the two
// sequences is populated, depending on intent.
type Partial struct {
	Products []catalog.Group
	Recipes  []recipe.Recipe
}

// Result is the unit returned to the caller and recorded in history.
type Result struct {
	Products []catalog.Group `json:"products"`
	Recipes  []recipe.Recipe `json:"recipes"`
	Msg      string          `json:"msg,omitempty"`
	Intent   intent.Intent   `json:"intent,omitempty"`
}

// emptyResult is the safe-default shape: empty sequences rather than nulls,
// no message, no intent.
func emptyResult() Result {
	return Result{
		Products: []catalog.Group{},
		Recipes:  []recipe.Recipe{},
	}
}

// Handler builds the partial result for one intent.
type Handler interface {
	Handle(ctx context.Context, query string) (Partial, error)
}
