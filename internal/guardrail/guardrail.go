// Package guardrail blocks disallowed queries before any generation or
// retrieval work happens. Queries are compared against a reference set of
// blocked-query embeddings; a close enough match means the query is refused.
//
// The check fails closed: if the lookup cannot be performed, the query is
// treated as blocked. Availability of the safety check wins over
// availability of the feature.
package guardrail

import (
	"context"
	"errors"

	"github.com/cartsmith/cartsmith/internal/log"
)

// ErrLookup indicates the nearest-neighbor lookup could not be performed.
var ErrLookup = errors.New("guardrail lookup failed")

// Neighbor is one match from the blocked-query reference set. Score is a
// similarity in [0, 1], higher meaning closer.
type Neighbor struct {
	ID    int64
	Score float64
}

// Lookup finds the reference entries nearest to a query text, closest first.
type Lookup interface {
	Nearest(ctx context.Context, query string) ([]Neighbor, error)
}

// Checker decides whether a query may enter the pipeline.
type Checker struct {
	lookup    Lookup
	threshold float64
	logger    log.Logger
}

// NewChecker creates a Checker blocking queries whose closest reference
// match scores at or above threshold.
func NewChecker(lookup Lookup, threshold float64, logger log.Logger) *Checker {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Checker{
		lookup:    lookup,
		threshold: threshold,
		logger:    logger,
	}
}

// IsMalicious reports whether the query must be refused. The threshold is
// inclusive, and any lookup failure (including an empty reference set)
// blocks the query.
func (c *Checker) IsMalicious(ctx context.Context, query string) bool {
	neighbors, err := c.lookup.Nearest(ctx, query)
	if err != nil {
		c.logger.Warn("guardrail lookup failed, blocking query", "error", err)
		return true
	}
	if len(neighbors) == 0 {
		c.logger.Warn("guardrail reference set returned no neighbors, blocking query")
		return true
	}

	closest := neighbors[0]
	blocked := closest.Score >= c.threshold
	if blocked {
		c.logger.Info("query blocked by guardrail",
			"match_id", closest.ID,
			"score", closest.Score,
			"threshold", c.threshold,
		)
	}
	return blocked
}
