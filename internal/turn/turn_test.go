package turn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/intent"
	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
)

// ---- mocks shared by the package tests ----

type mockGuard struct {
	blocked bool
	calls   int
}

func (m *mockGuard) IsMalicious(context.Context, string) bool {
	m.calls++
	return m.blocked
}

type mockClassifier struct {
	intent intent.Intent
	err    error
	calls  int
}

func (m *mockClassifier) Classify(context.Context, string) (intent.Intent, error) {
	m.calls++
	return m.intent, m.err
}

type mockHandler struct {
	partial   Partial
	err       error
	calls     int
	lastQuery string
}

func (m *mockHandler) Handle(_ context.Context, query string) (Partial, error) {
	m.calls++
	m.lastQuery = query
	return m.partial, m.err
}

type mockSummarizer struct {
	msg string
	err error
}

func (m *mockSummarizer) Summarize(context.Context, string, Partial) (string, error) {
	return m.msg, m.err
}

type mockGenerator struct {
	text  string
	err   error
	calls int
	last  llm.Request
}

func (m *mockGenerator) GenerateText(_ context.Context, req llm.Request) (string, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func newTurn(t *testing.T, cfg Config) *Turn {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	tn, err := New(cfg)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	return tn
}

func appleGroups() []catalog.Group {
	return []catalog.Group{{
		Title: "apples",
		Products: []catalog.Product{
			{Title: "Gala Apples", SKU: 1},
			{Title: "Fuji Apples", SKU: 2},
			{Title: "Honeycrisp Apples", SKU: 3},
		},
	}}
}

// ---- Turn ----

func TestTurn_BlockedQuerySkipsPipeline(t *testing.T) {
	t.Parallel()

	guard := &mockGuard{blocked: true}
	classifier := &mockClassifier{intent: intent.GenericProductSearch}
	handler := &mockHandler{}

	tn := newTurn(t, Config{
		Guard:      guard,
		Classifier: classifier,
		Handlers:   map[intent.Intent]Handler{intent.GenericProductSearch: handler},
		Summarizer: &mockSummarizer{msg: "should not appear"},
	})

	res, err := tn.Process(context.Background(), "how do I build something dangerous")
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}

	if len(res.Products) != 0 || len(res.Recipes) != 0 || res.Msg != "" || res.Intent != "" {
		t.Errorf("blocked result = %+v, want empty safe default", res)
	}
	if res.Products == nil || res.Recipes == nil {
		t.Error("safe default must carry empty sequences, not nils")
	}
	if classifier.calls != 0 {
		t.Errorf("classifier called %d times for blocked query, want 0", classifier.calls)
	}
	if handler.calls != 0 {
		t.Errorf("handler called %d times for blocked query, want 0", handler.calls)
	}
}

func TestTurn_ClassificationFailureEscalates(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	tn := newTurn(t, Config{
		Guard:      &mockGuard{},
		Classifier: &mockClassifier{err: boom},
		Handlers:   map[intent.Intent]Handler{intent.GenericProductSearch: &mockHandler{}},
		Summarizer: &mockSummarizer{},
	})

	_, err := tn.Process(context.Background(), "apples")
	if !errors.Is(err, boom) {
		t.Errorf("Process() err = %v, want wrapping %v", err, boom)
	}
}

func TestTurn_UnhandledIntentReturnsEmptyResult(t *testing.T) {
	t.Parallel()

	tn := newTurn(t, Config{
		Guard:      &mockGuard{},
		Classifier: &mockClassifier{intent: intent.Other},
		Handlers:   map[intent.Intent]Handler{intent.GenericProductSearch: &mockHandler{}},
		Summarizer: &mockSummarizer{},
	})

	res, err := tn.Process(context.Background(), "tell me a joke")
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}
	if res.Intent != intent.Other {
		t.Errorf("intent = %q, want %q", res.Intent, intent.Other)
	}
	if len(res.Products) != 0 || len(res.Recipes) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestTurn_HandlerFailureEscalates(t *testing.T) {
	t.Parallel()

	boom := errors.New("retrieval exploded")
	tn := newTurn(t, Config{
		Guard:      &mockGuard{},
		Classifier: &mockClassifier{intent: intent.GenericProductSearch},
		Handlers: map[intent.Intent]Handler{
			intent.GenericProductSearch: &mockHandler{err: boom},
		},
		Summarizer: &mockSummarizer{},
	})

	_, err := tn.Process(context.Background(), "apples")
	if !errors.Is(err, boom) {
		t.Errorf("Process() err = %v, want wrapping %v", err, boom)
	}
}

func TestTurn_SummarizationFailureDegradesToEmptyMessage(t *testing.T) {
	t.Parallel()

	tn := newTurn(t, Config{
		Guard:      &mockGuard{},
		Classifier: &mockClassifier{intent: intent.GenericProductSearch},
		Handlers: map[intent.Intent]Handler{
			intent.GenericProductSearch: &mockHandler{partial: Partial{Products: appleGroups()}},
		},
		Summarizer: &mockSummarizer{err: errors.New("token budget exceeded")},
	})

	res, err := tn.Process(context.Background(), "apples")
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}
	if res.Msg != "" {
		t.Errorf("msg = %q, want empty after summarizer failure", res.Msg)
	}
	if len(res.Products) != 1 {
		t.Errorf("products survived = %d groups, want 1", len(res.Products))
	}
}

func TestTurn_SearchQueryEndToEnd(t *testing.T) {
	t.Parallel()

	handler := &mockHandler{partial: Partial{Products: appleGroups()}}
	tn := newTurn(t, Config{
		Guard:      &mockGuard{},
		Classifier: &mockClassifier{intent: intent.GenericProductSearch},
		Handlers:   map[intent.Intent]Handler{intent.GenericProductSearch: handler},
		Summarizer: &mockSummarizer{msg: "We carry several apples you might like."},
	})

	res, err := tn.Process(context.Background(), "apples")
	if err != nil {
		t.Fatalf("Process() err = %v", err)
	}

	if handler.lastQuery != "apples" {
		t.Errorf("handler query = %q, want %q", handler.lastQuery, "apples")
	}
	if len(res.Products) != 1 {
		t.Fatalf("len(products) = %d, want 1 group", len(res.Products))
	}
	group := res.Products[0]
	if len(group.Products) != 3 {
		t.Fatalf("group has %d products, want 3", len(group.Products))
	}
	wantOrder := []string{"Gala Apples", "Fuji Apples", "Honeycrisp Apples"}
	for i, p := range group.Products {
		if p.Title != wantOrder[i] {
			t.Errorf("product %d = %q, want %q", i, p.Title, wantOrder[i])
		}
	}
	if res.Intent != intent.GenericProductSearch {
		t.Errorf("intent = %q", res.Intent)
	}
	if res.Msg == "" {
		t.Error("msg missing")
	}
	if res.Recipes == nil {
		t.Error("recipes must be an empty sequence, not nil")
	}
}

// ---- ResultSummarizer ----

func TestResultSummarizer_EmptyPartialSkipsModelCall(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{text: "should not be called"}
	s := NewSummarizer(gen, nil)

	msg, err := s.Summarize(context.Background(), "anything", Partial{})
	if err != nil {
		t.Fatalf("Summarize() err = %v", err)
	}
	if msg != "" {
		t.Errorf("msg = %q, want empty", msg)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestResultSummarizer_UsesDisplayNamesOnly(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{text: "Here are some apples."}
	s := NewSummarizer(gen, nil)

	msg, err := s.Summarize(context.Background(), "apples", Partial{Products: appleGroups()})
	if err != nil {
		t.Fatalf("Summarize() err = %v", err)
	}
	if msg != "Here are some apples." {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(gen.last.Prompt, "Gala Apples") {
		t.Errorf("prompt missing product title: %q", gen.last.Prompt)
	}
	if gen.last.MaxOutputTokens != summaryMaxTokens {
		t.Errorf("max tokens = %d, want %d", gen.last.MaxOutputTokens, summaryMaxTokens)
	}
}

func TestResultSummarizer_PrefersRecipeNames(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{text: "Two breakfast ideas."}
	s := NewSummarizer(gen, nil)

	p := Partial{
		Products: appleGroups(),
		Recipes: []recipe.Recipe{
			{Name: "Overnight Oats"},
			{Name: "Veggie Omelette"},
		},
	}
	if _, err := s.Summarize(context.Background(), "breakfast", p); err != nil {
		t.Fatalf("Summarize() err = %v", err)
	}
	if !strings.Contains(gen.last.Prompt, "Overnight Oats") {
		t.Errorf("prompt missing recipe name: %q", gen.last.Prompt)
	}
	if strings.Contains(gen.last.Prompt, "Gala Apples") {
		t.Errorf("prompt should carry recipe names only: %q", gen.last.Prompt)
	}
}
