// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"context"
	"fmt"

	"github.com/AretaiLabs/tablescout/services/picker/embedding"
)

// applySemanticPass adds embedding-similarity signals to the top K lexical
// candidates.
//
// Description:
//
//	Bounded to the top K so the number of similarity computations stays
//	independent of catalog size. One query embedding is computed (or served
//	from the query cache); table- and column-level vectors come precomputed
//	from the vector store. Absence or failure of the provider leaves the
//	lexical scores untouched.
//
//	Only the boosted prefix is re-sorted: tables beyond K keep their
//	lexical order, which the lexical sort already established.
func (e *Engine) applySemanticPass(ctx context.Context, query string, scores []*TableScore) {
	ctx, span := engineTracer.Start(ctx, "scoring.Engine.applySemanticPass")
	defer span.End()

	topK := e.weights.SemanticTopK
	if topK > len(scores) {
		topK = len(scores)
	}
	if topK == 0 {
		return
	}

	queryVec := e.queryEmbedding(ctx, query)
	if queryVec == nil {
		return
	}

	for _, ts := range scores[:topK] {
		e.addSemanticScores(ts, queryVec)
	}
	sortByScore(scores[:topK])
}

// addSemanticScores awards table-level and column-level similarity for one
// candidate. Capped at 3 total via the semantic-similarity signal cap: the
// table vector plus the top 2 columns.
func (e *Engine) addSemanticScores(ts *TableScore, queryVec []float32) {
	if tableVec, ok := e.vectors.TableVector(ts.TableName); ok {
		sim := embedding.CosineSimilarity(queryVec, tableVec)
		if sim > e.weights.TableSimilarityFloor {
			ts.Add(Award{
				Points: e.weights.SemanticSimilarity * sim,
				Reason: fmt.Sprintf("semantically similar to query (similarity: %.2f)", sim),
				Kind:   SignalSemanticSimilarity,
			})
		}
	}

	meta, ok := e.store.GetTable(ts.TableName)
	if !ok {
		return
	}
	for _, col := range orderedColumns(meta) {
		colVec, ok := e.vectors.ColumnVector(ts.TableName, col.Name)
		if !ok {
			continue
		}
		sim := embedding.CosineSimilarity(queryVec, colVec)
		if sim > e.weights.ColumnSimilarityFloor {
			ts.Add(Award{
				Points: e.weights.SemanticSimilarity * sim * e.weights.ColumnSimilarityWeight,
				Reason: fmt.Sprintf("column '%s' semantically matches (similarity: %.2f)", col.Name, sim),
				Kind:   SignalSemanticSimilarity,
				Column: col.Name,
			})
		}
	}
}

// maxSemanticSimilarity returns the best similarity between the query and
// the top N tables' vectors, or -1 when no comparison was possible.
func (e *Engine) maxSemanticSimilarity(ctx context.Context, scores []*TableScore, query string) float64 {
	queryVec := e.queryEmbedding(ctx, query)
	if queryVec == nil {
		return -1
	}

	topN := e.weights.MismatchTopN
	if topN > len(scores) {
		topN = len(scores)
	}

	best := -1.0
	for _, ts := range scores[:topN] {
		tableVec, ok := e.vectors.TableVector(ts.TableName)
		if !ok {
			continue
		}
		if sim := embedding.CosineSimilarity(queryVec, tableVec); sim > best {
			best = sim
		}
	}
	return best
}
