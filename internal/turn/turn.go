package turn

import (
	"context"
	"errors"
	"fmt"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/intent"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
)

// Guard decides whether a query may be processed at all.
type Guard interface {
	IsMalicious(ctx context.Context, query string) bool
}

// Classifier selects the intent for a query.
type Classifier interface {
	Classify(ctx context.Context, query string) (intent.Intent, error)
}

// Summarizer reduces a partial result to a short message.
type Summarizer interface {
	Summarize(ctx context.Context, query string, p Partial) (string, error)
}

// Config contains all required parameters for a Turn.
type Config struct {
	Guard      Guard
	Classifier Classifier

	// Handlers maps each dispatchable intent to its handler. Intents
	// without an entry (notably "other") produce an empty result.
	Handlers map[intent.Intent]Handler

	Summarizer Summarizer
	Logger     log.Logger
}

func (cfg Config) validate() error {
	if cfg.Guard == nil {
		return errors.New("guard is required")
	}
	if cfg.Classifier == nil {
		return errors.New("classifier is required")
	}
	if len(cfg.Handlers) == 0 {
		return errors.New("at least one handler is required")
	}
	if cfg.Summarizer == nil {
		return errors.New("summarizer is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Turn runs the single-query pipeline: guardrail, classification, handler
// dispatch, summarization.
//
// A blocked query is a policy outcome, not an error: Process returns the
// safe-default result with a nil error and runs no further stage. A failure
// in classification or in the dispatched handler is returned as an error;
// the session wrapper decides how to present it. A summarization failure
// only degrades the message.
type Turn struct {
	guard      Guard
	classifier Classifier
	handlers   map[intent.Intent]Handler
	summarizer Summarizer
	logger     log.Logger
}

// New creates a Turn with the given configuration.
func New(cfg Config) (*Turn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Turn{
		guard:      cfg.Guard,
		classifier: cfg.Classifier,
		handlers:   cfg.Handlers,
		summarizer: cfg.Summarizer,
		logger:     cfg.Logger,
	}, nil
}

// Process runs one query through the pipeline.
func (t *Turn) Process(ctx context.Context, query string) (Result, error) {
	if t.guard.IsMalicious(ctx, query) {
		t.logger.Info("query blocked", "query", query)
		return emptyResult(), nil
	}

	it, err := t.classifier.Classify(ctx, query)
	if err != nil {
		return emptyResult(), fmt.Errorf("classifying query: %w", err)
	}
	t.logger.Debug("query classified", "query", query, "intent", it)

	handler, ok := t.handlers[it]
	if !ok {
		// No handler registered for this intent. Not a failure: the
		// caller gets an empty result tagged with the intent.
		res := emptyResult()
		res.Intent = it
		return res, nil
	}

	partial, err := handler.Handle(ctx, query)
	if err != nil {
		return emptyResult(), fmt.Errorf("handling %s query: %w", it, err)
	}

	msg, err := t.summarizer.Summarize(ctx, query, partial)
	if err != nil {
		// Summarization is presentation only; the structured result
		// stands on its own.
		t.logger.Warn("summarization failed", "query", query, "error", err)
		msg = ""
	}

	res := Result{
		Products: partial.Products,
		Recipes:  partial.Recipes,
		Msg:      msg,
		Intent:   it,
	}
	// Callers and the JSON layer expect sequences, never nulls.
	if res.Products == nil {
		res.Products = []catalog.Group{}
	}
	if res.Recipes == nil {
		res.Recipes = []recipe.Recipe{}
	}
	return res, nil
}
