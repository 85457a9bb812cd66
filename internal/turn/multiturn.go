package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
)

// ApologyMessage is the fixed user-visible text for any turn that failed.
// The caller never sees partial payloads or error details.
const ApologyMessage = "Sorry I could not process that. Please try re-phrasing your query."

const followUpSystemPrompt = `You decide whether the current query is a follow-up to the previous exchange, i.e. whether it can only be answered correctly with that exchange as context.
Respond with exactly "true" or "false".`

const rewriteSystemPrompt = `The current query is a follow-up to the previous exchange. Rewrite it as one self-contained query that carries all context needed to answer it on its own.
Respond with the rewritten query only.`

// TurnProcessor runs one query through the single-turn pipeline.
type TurnProcessor interface {
	Process(ctx context.Context, query string) (Result, error)
}

// MultiTurnConfig contains all required parameters for a MultiTurn.
type MultiTurnConfig struct {
	Turn      TurnProcessor
	Generator Generator
	Logger    log.Logger
}

func (cfg MultiTurnConfig) validate() error {
	if cfg.Turn == nil {
		return errors.New("turn processor is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// MultiTurn wraps the single-turn pipeline with follow-up handling: when the
// session history shows the current query depends on the previous exchange,
// the query is rewritten to stand alone before the turn runs.
//
// MultiTurn absorbs every failure. Whatever goes wrong inside a turn, the
// caller receives the fixed apology result, and the history is only appended
// on success.
type MultiTurn struct {
	turn   TurnProcessor
	gen    Generator
	logger log.Logger
}

// NewMultiTurn creates a MultiTurn with the given configuration.
func NewMultiTurn(cfg MultiTurnConfig) (*MultiTurn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MultiTurn{
		turn:   cfg.Turn,
		gen:    cfg.Generator,
		logger: cfg.Logger,
	}, nil
}

// ProcessMessage handles one inbound message against the session's history.
// It never returns an error: failures collapse to the apology result.
func (m *MultiTurn) ProcessMessage(ctx context.Context, query string, history *History) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("turn panicked", "query", query, "panic", r)
			res = apologyResult()
		}
	}()

	effective := query
	if last, ok := history.Last(); ok && m.isFollowUp(ctx, query, last) {
		rewritten, err := m.rewrite(ctx, query, last)
		if err != nil {
			// Running the turn with the raw follow-up would produce
			// an answer ungrounded in the conversation.
			m.logger.Error("follow-up rewrite failed", "query", query, "error", err)
			return apologyResult()
		}
		m.logger.Debug("query rewritten", "query", query, "rewritten", rewritten)
		effective = rewritten
	}

	res, err := m.turn.Process(ctx, effective)
	if err != nil {
		m.logger.Error("turn failed", "query", query, "error", err)
		return apologyResult()
	}

	// The original query is recorded, not the rewrite, so the next
	// follow-up is detected against what the user actually said.
	history.Append(query, res)
	return res
}

// isFollowUp asks the model whether the query depends on the last exchange.
// Any failure defaults to "not a follow-up": the cost of a wrong default is
// degraded continuity, not safety.
func (m *MultiTurn) isFollowUp(ctx context.Context, query string, last Exchange) bool {
	text, err := m.gen.GenerateText(ctx, llm.Request{
		System: followUpSystemPrompt,
		Prompt: followUpPrompt(query, last),
	})
	if err != nil {
		m.logger.Warn("follow-up check failed, treating as standalone", "query", query, "error", err)
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), "true")
}

// rewrite turns a follow-up query into a self-contained one.
func (m *MultiTurn) rewrite(ctx context.Context, query string, last Exchange) (string, error) {
	text, err := m.gen.GenerateText(ctx, llm.Request{
		System: rewriteSystemPrompt,
		Prompt: followUpPrompt(query, last),
	})
	if err != nil {
		return "", fmt.Errorf("rewriting follow-up query: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// followUpPrompt renders only the most recent exchange: older history does
// not inform follow-up handling.
func followUpPrompt(query string, last Exchange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "previous_query: %s\n", last.Query)

	if names := displayNames(Partial{
		Products: last.Response.Products,
		Recipes:  last.Response.Recipes,
	}); len(names) > 0 {
		fmt.Fprintf(&b, "previous_results: %s\n", strings.Join(names, ", "))
	}
	if last.Response.Msg != "" {
		fmt.Fprintf(&b, "previous_response: %s\n", last.Response.Msg)
	}

	fmt.Fprintf(&b, "current_user_query: %s", query)
	return b.String()
}

func apologyResult() Result {
	res := emptyResult()
	res.Msg = ApologyMessage
	return res
}
