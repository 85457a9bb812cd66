package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/cartsmith/cartsmith/internal/log"
)

func TestConfig_validate(t *testing.T) {
	t.Parallel()

	stubG := new(genkit.Genkit)

	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{
			name:        "nil genkit",
			cfg:         Config{ModelName: "googleai/gemini-2.5-flash", Logger: log.NewNop()},
			errContains: "genkit instance is required",
		},
		{
			name:        "empty model name",
			cfg:         Config{Genkit: stubG, Logger: log.NewNop()},
			errContains: "model name is required",
		},
		{
			name:        "nil logger",
			cfg:         Config{Genkit: stubG, ModelName: "googleai/gemini-2.5-flash"},
			errContains: "logger is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.validate()
			if err == nil {
				t.Fatal("validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("validate() = %q, want to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type plan struct {
		Ideas    []string `json:"ideas"`
		Products []string `json:"products"`
	}

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"ideas": ["pancakes"], "products": ["flour", "eggs"]}`,
		},
		{
			name: "fenced json",
			text: "```json\n{\"ideas\": [\"pancakes\"], \"products\": [\"flour\", \"eggs\"]}\n```",
		},
		{
			name: "fence without language tag",
			text: "```\n{\"ideas\": [\"pancakes\"], \"products\": [\"flour\", \"eggs\"]}\n```",
		},
		{
			name:    "empty response",
			text:    "   ",
			wantErr: true,
		},
		{
			name:    "malformed json",
			text:    `{"ideas": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got plan
			err := decodeJSON(tt.text, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("decodeJSON() = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON() = %v", err)
			}
			if len(got.Ideas) != 1 || got.Ideas[0] != "pancakes" {
				t.Errorf("ideas = %v, want [pancakes]", got.Ideas)
			}
			if len(got.Products) != 2 {
				t.Errorf("products = %v, want 2 entries", got.Products)
			}
		})
	}
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("googleai: RATE LIMIT exceeded"), want: true},
		{name: "http 503", err: errors.New("rpc error: 503 service unavailable"), want: true},
		{name: "timeout", err: errors.New("dial tcp: i/o timeout"), want: true},
		{name: "bad request", err: errors.New("invalid argument: bad prompt"), want: false},
		{name: "safety block", err: errors.New("response blocked by safety settings"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOrDefault(t *testing.T) {
	t.Parallel()

	if got := orDefault(float32(0), DefaultTemperature); got != DefaultTemperature {
		t.Errorf("orDefault(0) = %v, want default", got)
	}
	if got := orDefault(float32(0.5), DefaultTemperature); got != 0.5 {
		t.Errorf("orDefault(0.5) = %v, want 0.5", got)
	}
	if got := orDefault(int32(0), DefaultMaxOutputTokens); got != DefaultMaxOutputTokens {
		t.Errorf("orDefault(0) = %v, want default", got)
	}
}
