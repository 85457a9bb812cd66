// Package mealplan implements the recipe-intent handler. One planning call
// yields recipe names and a shared grocery list; per-recipe metadata
// generation and grocery-list resolution then run as two concurrent
// branches, each fanning out over its own items.
package mealplan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/fanout"
	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
	"github.com/cartsmith/cartsmith/internal/turn"
)

const (
	// planTemperature runs hotter than the rest of the pipeline so repeated
	// meal-plan queries do not converge on the same recipes.
	planTemperature float32 = 0.5

	metadataTemperature float32 = 0.3
)

const planSystemPrompt = `Generate recipe names and one combined grocery list matching the user's recipe or meal-plan request.

Rules:
1. If the user asks for N days of recipes, generate one recipe per day.
2. If the user asks for an N-day meal plan, generate a breakfast, lunch, and dinner recipe per day.
3. Recipe names carry the name only.
4. The grocery list holds the ingredient or product type names needed across all recipes.
5. When unsure how many recipes to generate, generate 7.

Respond with JSON:
{"diy_ideas": [recipe names], "product_list": [grocery list items]}`

const metadataSystemPrompt = `Generate ingredients, instructions, and nutritional information for the named recipe.

Rules:
1. Let the provided grocery list guide the ingredients.
2. Every ingredient carries the measurement needed to prepare the recipe.
3. Nutrition values are estimates with units.

Respond with JSON:
{"ingredients": [ingredients with measurements], "instructions": [steps], "serving_size": "...", "calories": "...", "protein": "...", "fat": "...", "carbs": "...", "cholesterol": "...", "sodium": "...", "potassium": "...", "recipe_type": "breakfast, lunch, or dinner", "prep_time": "minutes", "cook_time": "minutes"}`

// Searcher is the catalog retrieval the grocery branch needs.
type Searcher interface {
	Search(ctx context.Context, query string, pageSize int) ([]catalog.Product, error)
}

// Generator covers the generation calls the handler needs.
type Generator interface {
	GenerateData(ctx context.Context, req llm.Request, out any) error
}

// VideoFinder locates a companion video for a recipe name.
type VideoFinder interface {
	FindVideo(ctx context.Context, query string) (string, error)
}

// Config contains the parameters for the meal-plan handler.
type Config struct {
	Searcher  Searcher
	Generator Generator

	// Videos is optional; without it every recipe gets the placeholder
	// video link.
	Videos VideoFinder

	// PageSize is the number of catalog items fetched per grocery item.
	PageSize int

	// FanoutLimit bounds concurrency within each branch.
	FanoutLimit int

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Searcher == nil {
		return errors.New("searcher is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", cfg.PageSize)
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Planner is the recipe-intent handler.
type Planner struct {
	search      Searcher
	gen         Generator
	videos      VideoFinder
	pageSize    int
	fanoutLimit int
	logger      log.Logger
}

// New creates a Planner with the given configuration.
func New(cfg Config) (*Planner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Planner{
		search:      cfg.Searcher,
		gen:         cfg.Generator,
		videos:      cfg.Videos,
		pageSize:    cfg.PageSize,
		fanoutLimit: cfg.FanoutLimit,
		logger:      cfg.Logger,
	}, nil
}

// mealPlan is the planning call's output: recipe names plus the grocery list
// shared by all of them.
type mealPlan struct {
	RecipeNames []string `json:"diy_ideas"`
	GroceryList []string `json:"product_list"`
}

// Handle plans the recipes, then resolves recipe metadata and grocery
// products concurrently. Recipes come back in planned-name order and grocery
// groups in grocery-list order; a failed item in either branch never
// disturbs its siblings.
func (p *Planner) Handle(ctx context.Context, query string) (turn.Partial, error) {
	plan, err := p.plan(ctx, query)
	if err != nil {
		return turn.Partial{}, err
	}
	p.logger.Debug("meal plan generated",
		"query", query,
		"recipes", len(plan.RecipeNames),
		"grocery_items", len(plan.GroceryList),
	)

	recipes, groups, err := fanout.Join(ctx,
		func(ctx context.Context) ([]recipe.Recipe, error) {
			return p.buildRecipes(ctx, plan), nil
		},
		func(ctx context.Context) ([]catalog.Group, error) {
			return p.resolveGroceries(ctx, plan.GroceryList), nil
		},
	)
	if err != nil {
		return turn.Partial{}, fmt.Errorf("assembling meal plan for %q: %w", query, err)
	}

	return turn.Partial{Recipes: recipes, Products: groups}, nil
}

// plan generates the recipe names and grocery list.
func (p *Planner) plan(ctx context.Context, query string) (mealPlan, error) {
	var plan mealPlan
	err := p.gen.GenerateData(ctx, llm.Request{
		System:      planSystemPrompt,
		Prompt:      fmt.Sprintf("user_query: %s", query),
		Temperature: planTemperature,
	}, &plan)
	if err != nil {
		return mealPlan{}, fmt.Errorf("planning recipes for %q: %w", query, err)
	}
	if len(plan.RecipeNames) == 0 {
		return mealPlan{}, fmt.Errorf("planning recipes for %q: model produced no recipe names", query)
	}
	return plan, nil
}

// buildRecipes fans out metadata generation per recipe name. A failed slot
// degrades to a name-only record so the result keeps the planned length and
// order.
func (p *Planner) buildRecipes(ctx context.Context, plan mealPlan) []recipe.Recipe {
	slots := fanout.All(ctx, plan.RecipeNames, p.fanoutLimit,
		func(ctx context.Context, name string) (recipe.Recipe, error) {
			return p.recipeData(ctx, name, plan.GroceryList)
		})

	recipes := make([]recipe.Recipe, 0, len(slots))
	for i, slot := range slots {
		if slot.Err != nil {
			p.logger.Warn("recipe metadata generation failed",
				"recipe", plan.RecipeNames[i],
				"error", slot.Err,
			)
			recipes = append(recipes, p.stubRecipe(plan, i))
			continue
		}
		recipes = append(recipes, slot.Value)
	}
	return recipes
}

// metadata is the model's per-recipe output. Values stay as free text
// because the model estimates them with units.
type metadata struct {
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	ServingSize  string   `json:"serving_size"`
	Calories     string   `json:"calories"`
	Protein      string   `json:"protein"`
	Fat          string   `json:"fat"`
	Carbs        string   `json:"carbs"`
	Cholesterol  string   `json:"cholesterol"`
	Sodium       string   `json:"sodium"`
	Potassium    string   `json:"potassium"`
	RecipeType   string   `json:"recipe_type"`
	PrepTime     string   `json:"prep_time"`
	CookTime     string   `json:"cook_time"`
}

// recipeData generates one recipe's metadata, grounded on the shared
// grocery list, and attaches the identifier and companion video.
func (p *Planner) recipeData(ctx context.Context, name string, groceryList []string) (recipe.Recipe, error) {
	var md metadata
	err := p.gen.GenerateData(ctx, llm.Request{
		System: metadataSystemPrompt,
		Prompt: fmt.Sprintf("recipe: %s\ngrocery_list: %s", name, strings.Join(groceryList, ", ")),

		Temperature: metadataTemperature,
	}, &md)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("generating metadata for %q: %w", name, err)
	}

	return recipe.Recipe{
		ID:           recipe.NewID(),
		Name:         name,
		Ingredients:  md.Ingredients,
		Instructions: md.Instructions,
		ServingSize:  md.ServingSize,
		Calories:     md.Calories,
		Protein:      md.Protein,
		Fat:          md.Fat,
		Carbs:        md.Carbs,
		Cholesterol:  md.Cholesterol,
		Sodium:       md.Sodium,
		Potassium:    md.Potassium,
		RecipeType:   md.RecipeType,
		PrepTime:     md.PrepTime,
		CookTime:     md.CookTime,
		GroceryList:  groceryList,
		VideoURL:     p.videoURL(ctx, name),
	}, nil
}

// stubRecipe stands in for a recipe whose metadata generation failed.
func (p *Planner) stubRecipe(plan mealPlan, i int) recipe.Recipe {
	return recipe.Recipe{
		ID:          recipe.NewID(),
		Name:        plan.RecipeNames[i],
		GroceryList: plan.GroceryList,
		VideoURL:    recipe.PlaceholderVideoURL,
	}
}

// videoURL looks up a companion video, degrading to the placeholder on any
// failure. The video is garnish; it never fails a recipe.
func (p *Planner) videoURL(ctx context.Context, name string) string {
	if p.videos == nil {
		return recipe.PlaceholderVideoURL
	}

	url, err := p.videos.FindVideo(ctx, name)
	if err != nil {
		p.logger.Warn("video lookup failed", "recipe", name, "error", err)
		return recipe.PlaceholderVideoURL
	}
	return url
}

// resolveGroceries fans out one catalog search per grocery item. Failed
// items are dropped, preserving the order of the survivors.
func (p *Planner) resolveGroceries(ctx context.Context, groceryList []string) []catalog.Group {
	slots := fanout.All(ctx, groceryList, p.fanoutLimit,
		func(ctx context.Context, item string) (catalog.Group, error) {
			items, err := p.search.Search(ctx, item, p.pageSize)
			if err != nil {
				return catalog.Group{}, err
			}
			return catalog.Group{Title: item, Products: items}, nil
		})

	groups := make([]catalog.Group, 0, len(slots))
	for i, slot := range slots {
		if slot.Err != nil {
			p.logger.Warn("grocery item resolution failed",
				"item", groceryList[i],
				"error", slot.Err,
			)
			continue
		}
		groups = append(groups, slot.Value)
	}
	return groups
}
