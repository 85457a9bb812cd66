package guardrail

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the pgx-backed implementation of Querier.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to the given connection or pool.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const nearestBlockedQueries = `
SELECT id, 1 - (embedding <=> $1) AS score
FROM blocked_queries
ORDER BY embedding <=> $1
LIMIT $2
`

// NearestBlockedQueries returns the blocked-query rows nearest to the query
// embedding by cosine distance, with score = 1 - distance.
func (q *Queries) NearestBlockedQueries(ctx context.Context, arg NearestBlockedQueriesParams) ([]NearestBlockedQueriesRow, error) {
	rows, err := q.db.Query(ctx, nearestBlockedQueries, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NearestBlockedQueriesRow
	for rows.Next() {
		var row NearestBlockedQueriesRow
		if err := rows.Scan(&row.ID, &row.Score); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const insertBlockedQuery = `
INSERT INTO blocked_queries (content, embedding)
VALUES ($1, $2)
`

// InsertBlockedQuery adds one entry to the reference set.
func (q *Queries) InsertBlockedQuery(ctx context.Context, arg InsertBlockedQueryParams) error {
	_, err := q.db.Exec(ctx, insertBlockedQuery, arg.Content, arg.Embedding)
	return err
}
