// Package products implements the two product-intent handlers: the
// single-category search and the multi-category recommendation, which fans
// one query out into per-category catalog searches.
package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/fanout"
	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/turn"
)

const (
	// titleMaxTokens caps the 1-3 word group title generation.
	titleMaxTokens int32 = 30

	// categoryListMaxTokens caps the category planning call.
	categoryListMaxTokens int32 = 1000

	// maxCategories bounds how many category searches one recommendation
	// query can fan out into. The prompt asks for the same cap; this
	// enforces it when the model overshoots.
	maxCategories = 6
)

const titleSystemPrompt = `Generate a 1-3 word display title summarizing the listed products as an answer to the user query, e.g. "Vegan Ice Cream Options" for a vegan ice cream query.
Respond with the title only.`

const categorySystemPrompt = `You are a grocery retail associate.
Convert the user query into product types a customer could look up in the store catalog to fulfill it.
Respond with a JSON array of at most 6 product type or product name strings, best match first.

Example:
user_query: What kind of cheese goes well with crackers?
output: ["Cheddar cheese", "Gouda cheese", "Brie cheese"]`

// Searcher is the catalog retrieval the handlers need.
type Searcher interface {
	Search(ctx context.Context, query string, pageSize int) ([]catalog.Product, error)
}

// Generator covers the generation calls the handlers need.
type Generator interface {
	GenerateText(ctx context.Context, req llm.Request) (string, error)
	GenerateData(ctx context.Context, req llm.Request, out any) error
}

// Config contains all required parameters for the product handlers.
type Config struct {
	Searcher  Searcher
	Generator Generator

	// PageSize is the number of catalog items fetched per search.
	PageSize int

	// FanoutLimit bounds concurrent category searches.
	FanoutLimit int

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Searcher == nil {
		return fmt.Errorf("searcher is required")
	}
	if cfg.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", cfg.PageSize)
	}
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Search handles single-category product queries: one catalog search wrapped
// as a one-group result.
type Search struct {
	search   Searcher
	gen      Generator
	pageSize int
	logger   log.Logger
}

// NewSearch creates the single-category search handler.
func NewSearch(cfg Config) (*Search, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Search{
		search:   cfg.Searcher,
		gen:      cfg.Generator,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger,
	}, nil
}

// Handle runs one catalog search for the query. A retrieval failure
// escalates; a failed title generation degrades to the query itself.
func (h *Search) Handle(ctx context.Context, query string) (turn.Partial, error) {
	group, err := h.searchGroup(ctx, query)
	if err != nil {
		return turn.Partial{}, err
	}
	return turn.Partial{Products: []catalog.Group{group}}, nil
}

// searchGroup fetches one category's products and titles the group.
func (h *Search) searchGroup(ctx context.Context, query string) (catalog.Group, error) {
	items, err := h.search.Search(ctx, query, h.pageSize)
	if err != nil {
		return catalog.Group{}, fmt.Errorf("searching products for %q: %w", query, err)
	}

	return catalog.Group{
		Title:    h.groupTitle(ctx, query, items),
		Products: items,
	}, nil
}

// groupTitle generates the display title for a product group. The title is
// cosmetic, so a failed generation falls back to the query text.
func (h *Search) groupTitle(ctx context.Context, query string, items []catalog.Product) string {
	if len(items) == 0 {
		return query
	}

	names := make([]string, 0, len(items))
	for _, p := range items {
		names = append(names, p.Title)
	}

	title, err := h.gen.GenerateText(ctx, llm.Request{
		System:          titleSystemPrompt,
		Prompt:          fmt.Sprintf("user_query: %s\nproducts: %s", query, strings.Join(names, ", ")),
		MaxOutputTokens: titleMaxTokens,
	})
	if err != nil {
		h.logger.Warn("group title generation failed, using query", "query", query, "error", err)
		return query
	}
	return title
}

// Recommend handles occasion and pairing queries: one planning call produces
// up to six category names, then each category is searched concurrently.
type Recommend struct {
	searcher    *Search
	gen         Generator
	fanoutLimit int
	logger      log.Logger
}

// NewRecommend creates the multi-category recommendation handler.
func NewRecommend(cfg Config) (*Recommend, error) {
	searcher, err := NewSearch(cfg)
	if err != nil {
		return nil, err
	}
	return &Recommend{
		searcher:    searcher,
		gen:         cfg.Generator,
		fanoutLimit: cfg.FanoutLimit,
		logger:      cfg.Logger,
	}, nil
}

// Handle plans the category list and fans out one search per category.
// Groups come back in the planned order; a category whose search failed is
// dropped from the result, without affecting its siblings.
func (h *Recommend) Handle(ctx context.Context, query string) (turn.Partial, error) {
	categories, err := h.planCategories(ctx, query)
	if err != nil {
		return turn.Partial{}, err
	}

	slots := fanout.All(ctx, categories, h.fanoutLimit, h.searcher.searchGroup)

	groups := make([]catalog.Group, 0, len(slots))
	for i, slot := range slots {
		if slot.Err != nil {
			h.logger.Warn("category search failed",
				"category", categories[i],
				"error", slot.Err,
			)
			continue
		}
		groups = append(groups, slot.Value)
	}

	return turn.Partial{Products: groups}, nil
}

// planCategories generates the ordered category list for a query.
func (h *Recommend) planCategories(ctx context.Context, query string) ([]string, error) {
	var categories []string
	err := h.gen.GenerateData(ctx, llm.Request{
		System:          categorySystemPrompt,
		Prompt:          fmt.Sprintf("user_query: %s", query),
		MaxOutputTokens: categoryListMaxTokens,
	}, &categories)
	if err != nil {
		return nil, fmt.Errorf("planning categories for %q: %w", query, err)
	}

	if len(categories) > maxCategories {
		categories = categories[:maxCategories]
	}
	h.logger.Debug("categories planned", "query", query, "categories", categories)
	return categories, nil
}
