package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/cartsmith/cartsmith/internal/llm"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	text string
	err  error
}

func (m *mockGenerator) GenerateText(context.Context, llm.Request) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Intent
	}{
		{name: "exact label", text: "generic_product_search", want: GenericProductSearch},
		{name: "label with whitespace", text: "  recipes\n", want: Recipes},
		{name: "quoted label", text: `"product_recommendations"`, want: ProductRecommendations},
		{name: "uppercase label", text: "RECIPES", want: Recipes},
		{name: "label embedded in prose", text: "intent: product_recommendations", want: ProductRecommendations},
		{name: "unknown label maps to other", text: "smalltalk", want: Other},
		{name: "other label", text: "other", want: Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewClassifier(&mockGenerator{text: tt.text}, nil)
			got, err := c.Classify(context.Background(), "some query")
			if err != nil {
				t.Fatalf("Classify() err = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifier_Classify_GenerationFailure(t *testing.T) {
	t.Parallel()

	c := NewClassifier(&mockGenerator{err: errors.New("backend down")}, nil)
	_, err := c.Classify(context.Background(), "apples")
	if !errors.Is(err, ErrClassification) {
		t.Errorf("Classify() err = %v, want ErrClassification", err)
	}
}
