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
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AretaiLabs/tablescout/services/picker/config"
	"github.com/AretaiLabs/tablescout/services/picker/kg"
)

// =============================================================================
// OTel Tracer
// =============================================================================

var engineTracer = otel.Tracer("tablescout.picker.scoring")

// =============================================================================
// Engine Dependencies
// =============================================================================

// MetadataStore is the read-only catalog the engine scores against.
//
// Description:
//
//	Backed by a knowledge-graph snapshot loaded once at service start and
//	immutable for the lifetime of a query batch. A table vanishing between
//	ListTables and GetTable is a per-table miss the scorer skips with a
//	zero score, never a batch failure.
type MetadataStore interface {
	ListTables() []string
	GetTable(name string) (*kg.TableMetadata, bool)
	RelatedTables(name string, depth int) []string
}

// Embedder produces query embeddings. Optional: a nil Embedder degrades the
// engine to lexical-only scoring, silently.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore serves precomputed table and column embedding vectors.
// Optional, and independently so from Embedder: semantic signals need both.
type VectorStore interface {
	TableVector(name string) ([]float32, bool)
	ColumnVector(table, column string) ([]float32, bool)

	// Ready reports whether vectors are warmed and servable. A store still
	// warming behaves like an absent one.
	Ready() bool
}

// =============================================================================
// Engine
// =============================================================================

// Engine scores, filters, boosts, and grades catalog tables against
// natural-language queries.
//
// Description:
//
//	The full control flow per query:
//
//	  analyze → score all tables (parallel) → semantic pass on top K →
//	  domain-mismatch gate → centrality fallback for generic queries →
//	  threshold filter → FK relationship boost + rescue → confidence.
//
//	Every "found nothing good" path terminates in a ConfidenceResult, never
//	an error: no relevant table is a valid business outcome for a ranking
//	engine.
//
// Thread Safety: Safe for concurrent use. All shared state is read-only
// after construction except the query-embedding cache, which is a
// concurrent map.
type Engine struct {
	store    MetadataStore
	analyzer QueryAnalyzer
	embedder Embedder
	vectors  VectorStore
	weights  *config.ScoringWeights
	lexicon  *config.Lexicon
	logger   *slog.Logger

	stopwords map[string]struct{}
	vague     map[string]struct{}

	// workers bounds the scoring fan-out.
	workers int

	// queryVectors caches query embeddings keyed by normalized query text,
	// so repeated identical queries skip the provider round-trip.
	queryVectors sync.Map
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEmbedding wires an embedding provider and vector store, enabling the
// semantic similarity signal and the embedding-based mismatch check.
func WithEmbedding(embedder Embedder, vectors VectorStore) EngineOption {
	return func(e *Engine) {
		e.embedder = embedder
		e.vectors = vectors
	}
}

// WithAnalyzer replaces the built-in lexicon Extractor with a richer
// linguistic analyzer.
func WithAnalyzer(analyzer QueryAnalyzer) EngineOption {
	return func(e *Engine) {
		if analyzer != nil {
			e.analyzer = analyzer
		}
	}
}

// WithWorkers overrides the scoring fan-out width. Values below 1 reset to
// the default.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// NewEngine creates a relevance engine over a metadata store.
//
// Inputs:
//
//	store - Catalog read API. Must not be nil.
//	weights - Tunable constants. Nil falls back to the embedded defaults.
//	lexicon - Stoplists and intent families. Nil falls back to defaults.
//	logger - Logger for degradation warnings. Nil falls back to slog.Default.
//
// Thread Safety: The returned Engine is safe for concurrent use.
func NewEngine(store MetadataStore, weights *config.ScoringWeights, lexicon *config.Lexicon, logger *slog.Logger, opts ...EngineOption) *Engine {
	if weights == nil {
		weights = config.DefaultScoringWeights()
	}
	if lexicon == nil {
		lexicon = config.DefaultLexicon()
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:     store,
		analyzer:  NewExtractor(lexicon),
		weights:   weights,
		lexicon:   lexicon,
		logger:    logger,
		stopwords: lexicon.StopwordSet(),
		vague:     lexicon.VagueTermSet(),
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the engine's full output for one query.
type Result struct {
	// Query is the raw input text.
	Query string `json:"query"`

	// Terms and Entities are the analyzer's view of the query.
	Terms    []string `json:"terms"`
	Entities []string `json:"entities"`

	// Candidates is the final ranked candidate set after filtering,
	// boosting, and rescue. May be empty; that is an answer, not an error.
	Candidates []*TableScore `json:"candidates"`

	// AllScores is the full ranked score list before filtering.
	AllScores []*TableScore `json:"-"`

	// Confidence is the three-level verdict over Candidates.
	Confidence *ConfidenceResult `json:"confidence"`

	// IsGeneric reports that the centrality fallback fired.
	IsGeneric bool `json:"is_generic"`

	// IsDomainMismatch reports that the query looked off-domain.
	IsDomainMismatch bool `json:"is_domain_mismatch"`
}

// Rank runs the full pipeline for one query.
//
// Description:
//
//	Never returns an error for no-match outcomes; those arrive as LOW
//	confidence with a recommendation. Provider failures (embedding timeout,
//	analyzer absence) degrade to the lexical path and are logged, not
//	raised.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Rank(ctx context.Context, query string) *Result {
	start := time.Now()
	ctx, span := engineTracer.Start(ctx, "scoring.Engine.Rank")
	defer span.End()

	terms := e.analyzer.ExtractTerms(query)
	entities := e.analyzer.ExtractEntities(query)

	allScores := e.scoreAllTables(ctx, query, terms)

	if e.semanticEnabled() {
		e.applySemanticPass(ctx, query, allScores)
	}

	// The mismatch gate runs before any fallback boosting: a specific ask
	// the catalog cannot answer must not be dressed up with hub tables.
	mismatch := e.isDomainMismatch(ctx, allScores, entities, query)

	generic := false
	if !mismatch {
		generic = e.isGenericQuery(allScores, entities, terms)
		if generic {
			e.applyCentralityBoost(allScores, e.weights.CentralityBoostMax)
			sortByScore(allScores)
		} else if anyBaseScore(allScores) {
			e.applyCentralityBoost(allScores, e.weights.CentralityBoostCap)
			sortByScore(allScores)
		}
	}

	candidates := e.filterByThreshold(allScores)
	candidates = e.enhanceWithRelationships(ctx, candidates, allScores)
	confidence := e.calculateConfidence(candidates, entities, mismatch)

	elapsed := time.Since(start)
	scoringLatency.Observe(elapsed.Seconds())
	candidateCount.Observe(float64(len(candidates)))
	confidenceLevelTotal.WithLabelValues(string(confidence.Level)).Inc()
	if mismatch {
		domainMismatchTotal.Inc()
	}
	if generic {
		genericQueryTotal.Inc()
	}

	span.SetAttributes(
		attribute.Int("catalog_size", len(allScores)),
		attribute.Int("candidates", len(candidates)),
		attribute.String("confidence", string(confidence.Level)),
		attribute.Bool("generic", generic),
		attribute.Bool("domain_mismatch", mismatch),
	)

	e.logger.Debug("query ranked",
		slog.String("query_preview", truncateForLog(query, 80)),
		slog.Int("candidates", len(candidates)),
		slog.String("confidence", string(confidence.Level)),
		slog.Duration("elapsed", elapsed),
	)

	return &Result{
		Query:            query,
		Terms:            terms,
		Entities:         entities,
		Candidates:       candidates,
		AllScores:        allScores,
		Confidence:       confidence,
		IsGeneric:        generic,
		IsDomainMismatch: mismatch,
	}
}

// semanticEnabled reports whether both halves of the embedding dependency
// are present and warmed.
func (e *Engine) semanticEnabled() bool {
	return e.embedder != nil && e.vectors != nil && e.vectors.Ready()
}

// queryEmbedding returns the (cached) embedding for a query, or nil when the
// provider is absent or failed. Failure is a degradation, not an error.
func (e *Engine) queryEmbedding(ctx context.Context, query string) []float32 {
	if e.embedder == nil {
		return nil
	}
	key := normalizeQueryKey(query)
	if cached, ok := e.queryVectors.Load(key); ok {
		return cached.([]float32)
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		embeddingDegradedTotal.Inc()
		e.logger.Warn("query embedding unavailable, using lexical signals only",
			slog.String("error", err.Error()))
		return nil
	}
	e.queryVectors.Store(key, vec)
	return vec
}

// isGenericTerm reports membership in the stopword/vague union.
func (e *Engine) isGenericTerm(term string) bool {
	if _, ok := e.stopwords[term]; ok {
		return true
	}
	_, ok := e.vague[term]
	return ok
}

func anyBaseScore(scores []*TableScore) bool {
	for _, s := range scores {
		if s.BaseScore > 0 {
			return true
		}
	}
	return false
}

// normalizeQueryKey collapses case and whitespace so trivially restated
// queries share one cached embedding.
func normalizeQueryKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// truncateForLog bounds query text in log lines.
func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
