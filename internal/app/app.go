// Package app wires the application together: configuration, storage,
// generation, the conversation pipeline, and the HTTP API.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartsmith/cartsmith/internal/api"
	"github.com/cartsmith/cartsmith/internal/catalog"
	"github.com/cartsmith/cartsmith/internal/config"
	"github.com/cartsmith/cartsmith/internal/guardrail"
	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/saved"
	"github.com/cartsmith/cartsmith/internal/turn"
)

// App holds all initialized components.
// Create with Setup, release with Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Catalog   *catalog.Store
	Guardrail *guardrail.Index
	Saved     *saved.Service

	Pipeline *turn.MultiTurn
	Server   *api.Server

	otelCleanup func()
	cancel      context.CancelFunc
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
