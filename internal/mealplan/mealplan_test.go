package mealplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
)

// mockSearcher implements Searcher for testing.
type mockSearcher struct {
	failing map[string]error
}

func (m *mockSearcher) Search(_ context.Context, query string, _ int) ([]catalog.Product, error) {
	if err, ok := m.failing[query]; ok {
		return nil, err
	}
	return []catalog.Product{{Title: "Store Brand " + query}}, nil
}

// mockGenerator implements Generator. The planning call and the per-recipe
// metadata calls are told apart by their system prompt.
type mockGenerator struct {
	plan        mealPlan
	planErr     error
	metadataErr map[string]error // keyed by recipe name
}

func (m *mockGenerator) GenerateData(_ context.Context, req llm.Request, out any) error {
	if req.System == planSystemPrompt {
		if m.planErr != nil {
			return m.planErr
		}
		raw, err := json.Marshal(m.plan)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, out)
	}

	for name, err := range m.metadataErr {
		if strings.Contains(req.Prompt, name) {
			return err
		}
	}
	raw, err := json.Marshal(metadata{
		Ingredients:  []string{"1 cup oats"},
		Instructions: []string{"combine", "serve"},
		ServingSize:  "2",
		Calories:     "350",
		RecipeType:   "breakfast",
		PrepTime:     "5",
		CookTime:     "0",
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// mockVideos implements VideoFinder.
type mockVideos struct {
	url string
	err error
}

func (m *mockVideos) FindVideo(context.Context, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

func sevenDayPlan() mealPlan {
	plan := mealPlan{}
	for i := 1; i <= 7; i++ {
		plan.RecipeNames = append(plan.RecipeNames, fmt.Sprintf("Breakfast Bowl %d", i))
	}
	for i := 1; i <= 10; i++ {
		plan.GroceryList = append(plan.GroceryList, fmt.Sprintf("grocery item %d", i))
	}
	return plan
}

func testConfig(searcher Searcher, gen Generator, videos VideoFinder) Config {
	return Config{
		Searcher:    searcher,
		Generator:   gen,
		Videos:      videos,
		PageSize:    10,
		FanoutLimit: 4,
		Logger:      log.NewNop(),
	}
}

func TestPlanner_Handle_MealPlanOrdering(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{plan: sevenDayPlan()}
	videos := &mockVideos{url: "https://www.youtube.com/watch?v=abc123"}
	p, err := New(testConfig(&mockSearcher{}, gen, videos))
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}

	partial, err := p.Handle(context.Background(), "7 day breakfast meal plan")
	if err != nil {
		t.Fatalf("Handle() err = %v", err)
	}

	if len(partial.Recipes) != 7 {
		t.Fatalf("len(recipes) = %d, want 7", len(partial.Recipes))
	}
	for i, r := range partial.Recipes {
		want := fmt.Sprintf("Breakfast Bowl %d", i+1)
		if r.Name != want {
			t.Errorf("recipe %d = %q, want %q", i, r.Name, want)
		}
		if r.ID <= 0 {
			t.Errorf("recipe %d missing id", i)
		}
		if r.VideoURL != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("recipe %d video = %q", i, r.VideoURL)
		}
		if len(r.GroceryList) != 10 {
			t.Errorf("recipe %d grocery list = %d items, want 10", i, len(r.GroceryList))
		}
	}

	if len(partial.Products) != 10 {
		t.Fatalf("len(products) = %d, want 10", len(partial.Products))
	}
	for i, g := range partial.Products {
		want := fmt.Sprintf("grocery item %d", i+1)
		if g.Title != want {
			t.Errorf("group %d = %q, want %q", i, g.Title, want)
		}
	}
}

func TestPlanner_Handle_MetadataFailureDegradesSlotOnly(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{
		plan:        sevenDayPlan(),
		metadataErr: map[string]error{"Breakfast Bowl 3": errors.New("backend hiccup")},
	}
	p, err := New(testConfig(&mockSearcher{}, gen, nil))
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}

	partial, err := p.Handle(context.Background(), "7 day breakfast meal plan")
	if err != nil {
		t.Fatalf("Handle() err = %v", err)
	}

	if len(partial.Recipes) != 7 {
		t.Fatalf("len(recipes) = %d, want 7 despite one failed slot", len(partial.Recipes))
	}
	if len(partial.Products) != 10 {
		t.Fatalf("len(products) = %d, want 10", len(partial.Products))
	}

	failed := partial.Recipes[2]
	if failed.Name != "Breakfast Bowl 3" {
		t.Fatalf("slot 2 = %q, want the failed recipe name in place", failed.Name)
	}
	if len(failed.Ingredients) != 0 || failed.RecipeType != "" {
		t.Errorf("failed slot carries metadata: %+v", failed)
	}
	if failed.VideoURL != recipe.PlaceholderVideoURL {
		t.Errorf("failed slot video = %q, want placeholder", failed.VideoURL)
	}

	// Siblings are intact.
	for i, r := range partial.Recipes {
		if i == 2 {
			continue
		}
		if len(r.Ingredients) == 0 {
			t.Errorf("recipe %d lost its metadata", i)
		}
	}
}

func TestPlanner_Handle_GroceryFailureDropsItemOnly(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{plan: sevenDayPlan()}
	searcher := &mockSearcher{failing: map[string]error{"grocery item 5": errors.New("catalog timeout")}}
	p, err := New(testConfig(searcher, gen, nil))
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}

	partial, err := p.Handle(context.Background(), "7 day breakfast meal plan")
	if err != nil {
		t.Fatalf("Handle() err = %v", err)
	}

	if len(partial.Products) != 9 {
		t.Fatalf("len(products) = %d, want 9 survivors", len(partial.Products))
	}
	for _, g := range partial.Products {
		if g.Title == "grocery item 5" {
			t.Error("failed grocery item present in result")
		}
	}
	if len(partial.Recipes) != 7 {
		t.Errorf("len(recipes) = %d, want 7", len(partial.Recipes))
	}
}

func TestPlanner_Handle_PlanningFailureEscalates(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	p, err := New(testConfig(&mockSearcher{}, &mockGenerator{planErr: boom}, nil))
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}

	_, err = p.Handle(context.Background(), "dinner ideas")
	if !errors.Is(err, boom) {
		t.Errorf("Handle() err = %v, want wrapping %v", err, boom)
	}
}

func TestPlanner_Handle_EmptyPlanEscalates(t *testing.T) {
	t.Parallel()

	p, err := New(testConfig(&mockSearcher{}, &mockGenerator{plan: mealPlan{}}, nil))
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}

	if _, err := p.Handle(context.Background(), "dinner ideas"); err == nil {
		t.Error("Handle() err = nil for empty plan, want error")
	}
}

func TestPlanner_VideoLookupDegradesToPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		videos VideoFinder
	}{
		{name: "no finder configured", videos: nil},
		{name: "finder fails", videos: &mockVideos{err: errors.New("quota exceeded")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := &mockGenerator{plan: mealPlan{
				RecipeNames: []string{"Overnight Oats"},
				GroceryList: []string{"oats"},
			}}
			p, err := New(testConfig(&mockSearcher{}, gen, tt.videos))
			if err != nil {
				t.Fatalf("New() err = %v", err)
			}

			partial, err := p.Handle(context.Background(), "breakfast")
			if err != nil {
				t.Fatalf("Handle() err = %v", err)
			}
			if got := partial.Recipes[0].VideoURL; got != recipe.PlaceholderVideoURL {
				t.Errorf("video = %q, want placeholder", got)
			}
		})
	}
}
