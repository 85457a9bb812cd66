// Package llm wraps Genkit text generation behind the small surface the
// pipeline needs: plain-text generation and JSON generation into a struct.
//
// Per-call sampling parameters (temperature, token caps, topP) travel with
// each Request because every pipeline stage uses different values. Rate
// limiting and transient-error retry live here, at the client boundary; the
// pipeline core never retries.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/cartsmith/cartsmith/internal/log"
)

// ErrGeneration indicates the model call failed, returned an empty response,
// or produced unparseable structured output.
var ErrGeneration = errors.New("generation failed")

// Request describes one generation call.
type Request struct {
	System string // optional system instruction
	Prompt string

	// Sampling parameters. Zero values take the defaults below.
	Temperature     float32
	MaxOutputTokens int32
	TopP            float32

	// JSON asks the model for an application/json response. GenerateData
	// sets this implicitly.
	JSON bool
}

// Defaults applied to zero-valued Request fields.
const (
	DefaultTemperature     float32 = 0.2
	DefaultMaxOutputTokens int32   = 8192
	DefaultTopP            float32 = 0.95
)

// Config contains all required parameters for the client.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Logger    log.Logger

	// RateLimiter throttles outbound calls. Nil installs the default
	// (10 req/s sustained, burst of 30).
	RateLimiter *rate.Limiter

	// Retry controls transient-error retry. Zero value uses defaults.
	Retry RetryConfig
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client is the generation client shared by all pipeline stages.
// It is safe for concurrent use.
type Client struct {
	g         *genkit.Genkit
	modelName string
	limiter   *rate.Limiter
	retry     RetryConfig
	logger    log.Logger
}

// New creates a Client with the given configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	return &Client{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		limiter:   rl,
		retry:     retry,
		logger:    cfg.Logger,
	}, nil
}

// GenerateText issues one generation call and returns the model's text.
// An empty response is an error: callers always need content.
func (c *Client) GenerateText(ctx context.Context, req Request) (string, error) {
	resp, err := c.generateWithRetry(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: model returned empty response", ErrGeneration)
	}
	return text, nil
}

// GenerateData issues one JSON-mode generation call and decodes the response
// into out, which must be a pointer.
func (c *Client) GenerateData(ctx context.Context, req Request, out any) error {
	req.JSON = true

	resp, err := c.generateWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	if err := decodeJSON(resp.Text(), out); err != nil {
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return nil
}

// generate performs a single model call.
func (c *Client) generate(ctx context.Context, req Request) (*ai.ModelResponse, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(orDefault(req.Temperature, DefaultTemperature)),
		TopP:            genai.Ptr(orDefault(req.TopP, DefaultTopP)),
		MaxOutputTokens: orDefault(req.MaxOutputTokens, DefaultMaxOutputTokens),
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithPrompt(req.Prompt),
		ai.WithConfig(cfg),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}

	return genkit.Generate(ctx, c.g, opts...)
}

func orDefault[T float32 | int32](v, def T) T {
	if v == 0 {
		return def
	}
	return v
}

// decodeJSON parses a model's JSON response, tolerating the markdown code
// fences some models wrap structured output in despite the MIME type.
func decodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("model returned empty response")
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decoding structured response: %w", err)
	}
	return nil
}
