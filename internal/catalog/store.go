package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/cartsmith/cartsmith/internal/log"
)

// ErrRetrieval indicates the catalog search could not be performed: the
// query embedding failed or the database query failed.
var ErrRetrieval = errors.New("catalog retrieval failed")

// searchTimeout bounds one vector search, embedding included.
const searchTimeout = 10 * time.Second

// Querier defines the database operations the store needs. The interface is
// defined here, by the consumer, so tests can substitute a mock and the
// production wiring can pass the pgx-backed Queries.
type Querier interface {
	// SearchProducts performs a vector similarity search.
	SearchProducts(ctx context.Context, arg SearchProductsParams) ([]SearchProductsRow, error)

	// UpsertProduct inserts or updates one catalog item.
	UpsertProduct(ctx context.Context, arg UpsertProductParams) error
}

// SearchProductsParams carries the arguments for SearchProducts.
type SearchProductsParams struct {
	QueryEmbedding *pgvector.Vector
	ResultLimit    int32
}

// SearchProductsRow is one row of the similarity search, nearest first.
type SearchProductsRow struct {
	Title string
	Url   string
	Image pgtype.Text
	Price pgtype.Float8
}

// UpsertProductParams carries the arguments for UpsertProduct.
type UpsertProductParams struct {
	Title     string
	Url       string
	Image     pgtype.Text
	Price     pgtype.Float8
	Embedding *pgvector.Vector
}

// Store retrieves catalog items by semantic similarity. It embeds query text
// with the configured embedder and delegates the vector search to a Querier.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// NewStore creates a Store. A nil logger falls back to the process default.
func NewStore(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Search returns up to pageSize catalog items nearest to the query text,
// nearest first.
func (s *Store) Search(ctx context.Context, query string, pageSize int) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	rows, err := s.queries.SearchProducts(ctx, SearchProductsParams{
		QueryEmbedding: embedding,
		ResultLimit:    int32(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		p := Product{
			Title: row.Title,
			URL:   row.Url,
			SKU:   ParseSKU(row.Url),
			Price: DefaultPrice,
		}
		if row.Image.Valid {
			p.Image = row.Image.String
		}
		if row.Price.Valid {
			p.Price = row.Price.Float64
		}
		products = append(products, p)
	}

	s.logger.Debug("catalog search", "query", query, "results", len(products))
	return products, nil
}

// Add embeds the product title and upserts the item, keyed by URL.
func (s *Store) Add(ctx context.Context, p Product) error {
	embedding, err := s.embed(ctx, p.Title)
	if err != nil {
		return err
	}

	arg := UpsertProductParams{
		Title:     p.Title,
		Url:       p.URL,
		Embedding: embedding,
	}
	if p.Image != "" {
		arg.Image = pgtype.Text{String: p.Image, Valid: true}
	}
	if p.Price > 0 {
		arg.Price = pgtype.Float8{Float64: p.Price, Valid: true}
	}

	if err := s.queries.UpsertProduct(ctx, arg); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.URL, err)
	}
	return nil
}

func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}
