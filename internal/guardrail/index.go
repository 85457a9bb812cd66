package guardrail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/cartsmith/cartsmith/internal/log"
)

// lookupTimeout bounds one guardrail lookup, embedding included. Shorter
// than the catalog search timeout: a slow guardrail stalls every turn.
const lookupTimeout = 5 * time.Second

// Querier defines the database operations the index needs.
type Querier interface {
	// NearestBlockedQueries performs a vector similarity search over the
	// blocked-query reference set.
	NearestBlockedQueries(ctx context.Context, arg NearestBlockedQueriesParams) ([]NearestBlockedQueriesRow, error)

	// InsertBlockedQuery adds one entry to the reference set.
	InsertBlockedQuery(ctx context.Context, arg InsertBlockedQueryParams) error
}

// NearestBlockedQueriesParams carries the arguments for NearestBlockedQueries.
type NearestBlockedQueriesParams struct {
	QueryEmbedding *pgvector.Vector
	ResultLimit    int32
}

// NearestBlockedQueriesRow is one row of the similarity search. Score is
// cosine similarity, higher meaning closer.
type NearestBlockedQueriesRow struct {
	ID    int64
	Score float64
}

// InsertBlockedQueryParams carries the arguments for InsertBlockedQuery.
type InsertBlockedQueryParams struct {
	Content   string
	Embedding *pgvector.Vector
}

// Index is the pgvector-backed Lookup over the blocked-query reference set.
//
// Index is safe for concurrent use by multiple goroutines.
type Index struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// NewIndex creates an Index. A nil logger falls back to a no-op logger.
func NewIndex(querier Querier, embedder ai.Embedder, logger log.Logger) *Index {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Index{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Nearest embeds the query and returns its closest blocked-query matches,
// closest first.
func (ix *Index) Nearest(ctx context.Context, query string) ([]Neighbor, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	embedding, err := ix.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	rows, err := ix.queries.NearestBlockedQueries(ctx, NearestBlockedQueriesParams{
		QueryEmbedding: embedding,
		ResultLimit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	neighbors := make([]Neighbor, 0, len(rows))
	for _, row := range rows {
		neighbors = append(neighbors, Neighbor{ID: row.ID, Score: row.Score})
	}
	return neighbors, nil
}

// AddBlocked embeds a disallowed query and stores it in the reference set.
func (ix *Index) AddBlocked(ctx context.Context, content string) error {
	embedding, err := ix.embed(ctx, content)
	if err != nil {
		return err
	}

	if err := ix.queries.InsertBlockedQuery(ctx, InsertBlockedQueryParams{
		Content:   content,
		Embedding: embedding,
	}); err != nil {
		return fmt.Errorf("inserting blocked query: %w", err)
	}
	return nil
}

func (ix *Index) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := ix.embedder.Embed(ctx, &ai.EmbedRequest{
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
