package saved

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier defines the database operations the service needs.
type Querier interface {
	ListSavedRecipes(ctx context.Context) ([]SavedRecipeRow, error)
	UpsertSavedRecipe(ctx context.Context, arg UpsertSavedRecipeParams) error

	// DeleteSavedRecipe returns the number of rows removed.
	DeleteSavedRecipe(ctx context.Context, id int64) (int64, error)
}

// SavedRecipeRow is one stored recipe, encoded as JSONB.
type SavedRecipeRow struct {
	ID   int64
	Data []byte
}

// UpsertSavedRecipeParams carries the arguments for UpsertSavedRecipe.
type UpsertSavedRecipeParams struct {
	ID   int64
	Data []byte
}

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

const listSavedRecipes = `
SELECT id, data
FROM saved_recipes
ORDER BY created_at
`

// ListSavedRecipes returns all saved recipes, oldest first.
func (q *Queries) ListSavedRecipes(ctx context.Context) ([]SavedRecipeRow, error) {
	rows, err := q.db.Query(ctx, listSavedRecipes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SavedRecipeRow
	for rows.Next() {
		var row SavedRecipeRow
		if err := rows.Scan(&row.ID, &row.Data); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const upsertSavedRecipe = `
INSERT INTO saved_recipes (id, data)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
`

// UpsertSavedRecipe stores one recipe, replacing a previous save of the
// same id.
func (q *Queries) UpsertSavedRecipe(ctx context.Context, arg UpsertSavedRecipeParams) error {
	_, err := q.db.Exec(ctx, upsertSavedRecipe, arg.ID, arg.Data)
	return err
}

const deleteSavedRecipe = `
DELETE FROM saved_recipes
WHERE id = $1
`

// DeleteSavedRecipe removes one saved recipe and reports how many rows
// matched.
func (q *Queries) DeleteSavedRecipe(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSavedRecipe, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
