package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches both *pgxpool.Pool and pgx.Tx, so queries run the same way
// inside and outside a transaction.
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

const searchProducts = `
SELECT title, url, image, price
FROM catalog_products
ORDER BY embedding <=> $1
LIMIT $2
`

// SearchProducts returns the catalog rows nearest to the query embedding by
// cosine distance, nearest first.
func (q *Queries) SearchProducts(ctx context.Context, arg SearchProductsParams) ([]SearchProductsRow, error) {
	rows, err := q.db.Query(ctx, searchProducts, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SearchProductsRow
	for rows.Next() {
		var row SearchProductsRow
		if err := rows.Scan(&row.Title, &row.Url, &row.Image, &row.Price); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const upsertProduct = `
INSERT INTO catalog_products (title, url, image, price, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    image = EXCLUDED.image,
    price = EXCLUDED.price,
    embedding = EXCLUDED.embedding
`

// UpsertProduct inserts one catalog item, replacing any existing row with
// the same URL.
func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) error {
	_, err := q.db.Exec(ctx, upsertProduct, arg.Title, arg.Url, arg.Image, arg.Price, arg.Embedding)
	return err
}
