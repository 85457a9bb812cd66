// Package recipe defines the recipe record shared by the meal-plan handler,
// the saved-items store, and the API layer.
package recipe

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// PlaceholderVideoURL stands in when no companion video can be found. The
// video lookup is best effort and must never fail a recipe.
const PlaceholderVideoURL = "https://www.youtube.com/"

// Recipe is one fully assembled recipe. Name arrives first from the planning
// step; the remaining fields are filled by the per-recipe metadata step.
// Nutrition values stay as free text because the model estimates them with
// units ("12 g", "450 mg").
type Recipe struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
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
	GroceryList  []string `json:"grocery_list"`
	VideoURL     string   `json:"external_video_url"`
}

// NewID returns a random 10-digit recipe identifier derived from a UUID.
func NewID() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) % 1e10)
}
