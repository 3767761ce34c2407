// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"context"
	"log/slog"
)

// isDomainMismatch flags queries whose ask the catalog cannot answer.
//
// Description:
//
//	A query can come up lexically empty for two very different reasons: it
//	is generic (no specific ask) or it is off-domain (a specific ask about
//	things this database does not hold). Only the former may trigger the
//	centrality fallback, so this gate runs before any boosting.
//
//	Two signals:
//
//	  1. Semantic: with embeddings available, the best similarity between
//	     the query and the top tables decides; below the mismatch floor is
//	     off-domain, at or above it is in-domain, and the lexical gate is
//	     skipped (an embedding match needs no matched entity).
//	  2. Lexical fallback: the query names one or more non-vague entities,
//	     yet no table accrued any base score with a non-empty
//	     matched-entity set.
func (e *Engine) isDomainMismatch(ctx context.Context, scores []*TableScore, entities []string, query string) bool {
	if e.semanticEnabled() {
		if best := e.maxSemanticSimilarity(ctx, scores, query); best >= 0 {
			if best < e.weights.MismatchSimilarityFloor {
				e.logger.Info("domain mismatch: semantic similarity below floor",
					slog.Float64("best_similarity", best),
					slog.String("query_preview", truncateForLog(query, 80)),
				)
				return true
			}
			// The semantic verdict is final in both directions: a table
			// admitted purely on embedding similarity has no matched
			// entities, so the lexical gate below would wrongly flag an
			// in-domain query. The lexical gate is a fallback for
			// lexical-only operation, not a second vote.
			return false
		}
	}

	if len(entities) == 0 {
		return false
	}
	for _, ts := range scores {
		if ts.BaseScore > 0 && len(ts.MatchedEntities) > 0 {
			return false
		}
	}
	e.logger.Info("domain mismatch: query entities matched nothing",
		slog.Int("entities", len(entities)),
		slog.String("query_preview", truncateForLog(query, 80)),
	)
	return true
}
