// Package saved persists recipes a shopper chose to keep. Saving a recipe
// also resolves its ingredients against the catalog, so the saved record
// carries a ready-to-shop grocery list.
package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/fanout"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
)

// ErrNotFound indicates no saved recipe exists with the requested id.
var ErrNotFound = errors.New("saved recipe not found")

// SavedRecipe is a kept recipe plus its catalog-resolved grocery products.
type SavedRecipe struct {
	recipe.Recipe
	GroceryProducts []catalog.Group `json:"grocery_products"`
}

// Searcher is the catalog retrieval used to resolve ingredients.
type Searcher interface {
	Search(ctx context.Context, query string, pageSize int) ([]catalog.Product, error)
}

// Config contains the parameters for the saved-recipes service.
type Config struct {
	Querier  Querier
	Searcher Searcher

	// PageSize is the number of catalog items fetched per ingredient.
	PageSize int

	// FanoutLimit bounds concurrent ingredient lookups.
	FanoutLimit int

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Querier == nil {
		return errors.New("querier is required")
	}
	if cfg.Searcher == nil {
		return errors.New("searcher is required")
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", cfg.PageSize)
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Service manages the saved-recipes collection.
type Service struct {
	queries     Querier
	search      Searcher
	pageSize    int
	fanoutLimit int
	logger      log.Logger
}

// New creates a Service with the given configuration.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{
		queries:     cfg.Querier,
		search:      cfg.Searcher,
		pageSize:    cfg.PageSize,
		fanoutLimit: cfg.FanoutLimit,
		logger:      cfg.Logger,
	}, nil
}

// List returns all saved recipes, oldest first.
func (s *Service) List(ctx context.Context) ([]SavedRecipe, error) {
	rows, err := s.queries.ListSavedRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing saved recipes: %w", err)
	}

	recipes := make([]SavedRecipe, 0, len(rows))
	for _, row := range rows {
		var r SavedRecipe
		if err := json.Unmarshal(row.Data, &r); err != nil {
			return nil, fmt.Errorf("decoding saved recipe %d: %w", row.ID, err)
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// Save resolves the recipe's ingredients against the catalog and persists
// the recipe together with the resulting grocery products. An ingredient
// whose lookup fails is dropped from the list, not the save.
func (s *Service) Save(ctx context.Context, r recipe.Recipe) error {
	if r.ID == 0 {
		return errors.New("recipe id is required")
	}

	saved := SavedRecipe{
		Recipe:          r,
		GroceryProducts: s.resolveIngredients(ctx, r.Ingredients),
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("encoding recipe %d: %w", r.ID, err)
	}

	if err := s.queries.UpsertSavedRecipe(ctx, UpsertSavedRecipeParams{
		ID:   r.ID,
		Data: data,
	}); err != nil {
		return fmt.Errorf("saving recipe %d: %w", r.ID, err)
	}

	s.logger.Info("recipe saved", "id", r.ID, "name", r.Name)
	return nil
}

// Delete removes one saved recipe.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteSavedRecipe(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting saved recipe %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	s.logger.Info("recipe unsaved", "id", id)
	return nil
}

// resolveIngredients fans out one catalog search per ingredient, preserving
// ingredient order among the survivors.
func (s *Service) resolveIngredients(ctx context.Context, ingredients []string) []catalog.Group {
	slots := fanout.All(ctx, ingredients, s.fanoutLimit,
		func(ctx context.Context, ingredient string) (catalog.Group, error) {
			items, err := s.search.Search(ctx, ingredient, s.pageSize)
			if err != nil {
				return catalog.Group{}, err
			}
			return catalog.Group{Title: ingredient, Products: items}, nil
		})

	groups := make([]catalog.Group, 0, len(slots))
	for i, slot := range slots {
		if slot.Err != nil {
			s.logger.Warn("ingredient resolution failed",
				"ingredient", ingredients[i],
				"error", slot.Err,
			)
			continue
		}
		groups = append(groups, slot.Value)
	}
	return groups
}
