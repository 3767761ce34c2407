// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embedding provides the optional semantic-similarity dependency of
// the relevance engine: an embedding provider client, vector math, and a
// warmed, persistable store of precomputed table and column vectors.
// Everything here degrades gracefully: an absent or failing provider means
// lexical-only scoring, never a failed query.
package embedding

import (
	"context"
	"math"
)

// Provider produces embedding vectors for text.
//
// Description:
//
//	Implementations must return unit-normalized vectors so that similarity
//	reduces to a dot product. Calls are expected to respect ctx deadlines;
//	a timeout is a degradation the caller absorbs.
type Provider interface {
	// Embed returns the unit-normalized embedding of one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in order. Batch calls
	// amortize the provider round-trip during warm-up.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CosineSimilarity returns the cosine similarity of two vectors, clamped to
// [0,1]. Mismatched or empty vectors score 0.
//
// Description:
//
//	Vectors from Provider implementations are unit-normalized, so this is a
//	plain dot product; the norms are still computed to stay correct for
//	vectors from other sources (tests, fixtures).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// normalize scales a vector to unit length in place and returns it.
// Zero vectors are returned unchanged.
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}
