package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/cartsmith/cartsmith/db"
	"github.com/cartsmith/cartsmith/internal/api"
	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/config"
	"github.com/cartsmith/cartsmith/internal/guardrail"
	"github.com/cartsmith/cartsmith/internal/intent"
	"github.com/cartsmith/cartsmith/internal/llm"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/mealplan"
	"github.com/cartsmith/cartsmith/internal/products"
	"github.com/cartsmith/cartsmith/internal/saved"
	"github.com/cartsmith/cartsmith/internal/turn"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	client, err := llm.New(llm.Config{
		Genkit:    g,
		ModelName: qualifyModelName(cfg.ModelName),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generation client: %w", err)
	}

	a.Catalog = catalog.NewStore(catalog.NewQueries(pool), embedder, logger)
	a.Guardrail = guardrail.NewIndex(guardrail.NewQueries(pool), embedder, logger)

	a.Saved, err = saved.New(saved.Config{
		Querier:     saved.NewQueries(pool),
		Searcher:    a.Catalog,
		PageSize:    cfg.RetrievalPageSize,
		FanoutLimit: cfg.FanoutLimit,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating saved-recipe service: %w", err)
	}

	a.Pipeline, err = providePipeline(a, client)
	if err != nil {
		return nil, err
	}

	// The server's session janitor lives until the app closes.
	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	a.Server, err = api.NewServer(serverCtx, api.ServerConfig{
		Logger:        logger,
		Pipeline:      a.Pipeline,
		Saved:         a.Saved,
		Pool:          pool,
		HistoryWindow: cfg.HistoryWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	return a, nil
}

// providePipeline assembles the conversation pipeline: guardrail,
// classifier, the three intent handlers, summarizer, and the multi-turn
// wrapper around the whole thing.
func providePipeline(a *App, client *llm.Client) (*turn.MultiTurn, error) {
	cfg := a.Config

	search, err := products.NewSearch(products.Config{
		Searcher:    a.Catalog,
		Generator:   client,
		PageSize:    cfg.RetrievalPageSize,
		FanoutLimit: cfg.FanoutLimit,
		Logger:      a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating search handler: %w", err)
	}

	recommend, err := products.NewRecommend(products.Config{
		Searcher:    a.Catalog,
		Generator:   client,
		PageSize:    cfg.RetrievalPageSize,
		FanoutLimit: cfg.FanoutLimit,
		Logger:      a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating recommend handler: %w", err)
	}

	planner, err := mealplan.New(mealplan.Config{
		Searcher:    a.Catalog,
		Generator:   client,
		Videos:      mealplan.NewYouTubeFinder(cfg.YouTubeAPIKey, a.Logger),
		PageSize:    cfg.RetrievalPageSize,
		FanoutLimit: cfg.FanoutLimit,
		Logger:      a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating meal-plan handler: %w", err)
	}

	single, err := turn.New(turn.Config{
		Guard:      guardrail.NewChecker(a.Guardrail, cfg.GuardrailThreshold, a.Logger),
		Classifier: intent.NewClassifier(client, a.Logger),
		Handlers: map[intent.Intent]turn.Handler{
			intent.GenericProductSearch:   search,
			intent.ProductRecommendations: recommend,
			intent.Recipes:                planner,
		},
		Summarizer: turn.NewSummarizer(client, a.Logger),
		Logger:     a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating turn pipeline: %w", err)
	}

	multi, err := turn.NewMultiTurn(turn.MultiTurnConfig{
		Turn:      single,
		Generator: client,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating multi-turn wrapper: %w", err)
	}
	return multi, nil
}

// provideOtelShutdown sets up OTLP trace export before Genkit initialization
// so the TracerProvider is ready when the first flow runs.
//
// Traces go to a local collector over OTLP HTTP; the collector handles
// authentication, buffering, and forwarding. Export failures disable tracing
// rather than failing startup.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	agentHost := cfg.OTLP.AgentHost
	if agentHost == "" {
		agentHost = "localhost:4318"
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if cfg.OTLP.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.OTLP.ServiceName)
	}
	if cfg.OTLP.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.OTLP.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"agent", agentHost,
		"service", cfg.OTLP.ServiceName,
		"environment", cfg.OTLP.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
// Every connection registers the pgvector types so embedding columns scan
// natively.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Debug("database pool ready",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName,
	)
	return pool, nil
}

// provideGenkit initializes Genkit with the Gemini plugin. GEMINI_API_KEY is
// read by the plugin directly from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// qualifyModelName prefixes the provider where the configured name omits it,
// so "gemini-2.5-flash" and "googleai/gemini-2.5-flash" both work.
func qualifyModelName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return "googleai/" + name
}
