// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Scoring Weights
// =============================================================================

//go:embed scoring_weights.yaml
var defaultScoringWeightsYAML []byte

// =============================================================================
// Scoring Weights Types
// =============================================================================

// ScoringWeights holds every tunable constant of the relevance engine.
//
// Description:
//
//	The weights were tuned empirically against the validation scenarios, not
//	derived from a model. They live in one struct so that tests can run the
//	engine with alternate weight tables and so that deployments can override
//	them via TABLESCOUT_WEIGHTS without rebuilding.
//
//	Relative ordering matters more than absolute magnitudes: a table-name
//	match must outrank a column-name match, which must outrank an intent
//	alignment, and so on.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ScoringWeights struct {
	// TableNameMatch is awarded per query term matching a table-name token.
	TableNameMatch float64 `yaml:"table_name_match"`

	// SemanticSimilarity is the full weight of an embedding match; the
	// awarded points are this weight scaled by the cosine similarity.
	SemanticSimilarity float64 `yaml:"semantic_similarity"`

	// SynonymMatch is awarded when a query term equals a curated column synonym.
	SynonymMatch float64 `yaml:"synonym_match"`

	// ColumnNameMatch is awarded per query term matching a column-name token.
	ColumnNameMatch float64 `yaml:"column_name_match"`

	// FKRelationship is awarded per anchor table a candidate is FK-linked to.
	FKRelationship float64 `yaml:"fk_relationship"`

	// SemanticTypeMatch is awarded when a column's semantic type matches the
	// detected query intent (temporal, numerical, categorical).
	SemanticTypeMatch float64 `yaml:"semantic_type_match"`

	// HintMatch is awarded when an optimization hint matches the query
	// operation (filtering, grouping, aggregation).
	HintMatch float64 `yaml:"hint_match"`

	// SampleValueMatch is awarded when a query term appears in a column's
	// tokenized sample values.
	SampleValueMatch float64 `yaml:"sample_value_match"`

	// TopValueMatch is awarded when a query term appears in the tokenized top
	// values of a categorical column.
	TopValueMatch float64 `yaml:"top_value_match"`

	// CentralityBoostMax scales normalized centrality for fully generic
	// queries, where structural importance is the only relevance signal.
	CentralityBoostMax float64 `yaml:"centrality_boost_max"`

	// CentralityBoostCap scales normalized centrality for mixed queries.
	// Kept below one column-name match so centrality never outranks a
	// genuine lexical hit.
	CentralityBoostCap float64 `yaml:"centrality_boost_cap"`

	// GenericQueryThreshold is the base score below which no table counts as
	// a strong match when classifying a query as generic.
	GenericQueryThreshold float64 `yaml:"generic_query_threshold"`

	// TableSimilarityFloor is the minimum cosine similarity for a table-level
	// embedding match to score at all.
	TableSimilarityFloor float64 `yaml:"table_similarity_floor"`

	// ColumnSimilarityFloor is the minimum cosine similarity for a
	// column-level embedding match. More lenient than the table floor.
	ColumnSimilarityFloor float64 `yaml:"column_similarity_floor"`

	// ColumnSimilarityWeight scales column-level similarity points relative
	// to table-level ones.
	ColumnSimilarityWeight float64 `yaml:"column_similarity_weight"`

	// MismatchSimilarityFloor: if the best similarity between the query and
	// the top tables falls below this, the query is off-domain.
	MismatchSimilarityFloor float64 `yaml:"mismatch_similarity_floor"`

	// AbsoluteThreshold is the minimum total score for threshold filtering.
	AbsoluteThreshold float64 `yaml:"absolute_threshold"`

	// RelativeThreshold is the fraction of the top score used as a cutoff
	// when the absolute threshold admits too many candidates.
	RelativeThreshold float64 `yaml:"relative_threshold"`

	// MaxCandidates bounds the final candidate set.
	MaxCandidates int `yaml:"max_candidates"`

	// MinFallback is how many top tables the fallback stage considers when
	// thresholding leaves fewer than two candidates.
	MinFallback int `yaml:"min_fallback"`

	// FallbackMinBaseScore is the weakest base score the fallback stage will
	// admit. Excludes tables that scored solely on intent alignment or a
	// single value hit, which are too weak to stand alone.
	FallbackMinBaseScore float64 `yaml:"fallback_min_base_score"`

	// SemanticTopK bounds how many lexically ranked tables receive the
	// embedding second pass.
	SemanticTopK int `yaml:"semantic_top_k"`

	// MismatchTopN bounds how many top tables the domain-mismatch check
	// compares against the query embedding.
	MismatchTopN int `yaml:"mismatch_top_n"`

	// AnchorCount is how many top candidates act as relationship anchors.
	AnchorCount int `yaml:"anchor_count"`

	// RescueMinConnections is the minimum number of anchors a filtered-out
	// table must bridge before it is rescued into the candidate set.
	RescueMinConnections int `yaml:"rescue_min_connections"`

	// CoreTableThreshold is the minimum base score for a candidate to count
	// as a core table during confidence calculation. Equal to one table-name
	// match by default.
	CoreTableThreshold float64 `yaml:"core_table_threshold"`

	// HighCoverage is the entity-coverage floor of the HIGH/MEDIUM branches.
	HighCoverage float64 `yaml:"high_coverage"`

	// MediumCoverage is the entity-coverage floor of the lower MEDIUM branch.
	MediumCoverage float64 `yaml:"medium_coverage"`

	// HighMaxCoreTables is the largest core-table count still unambiguous
	// enough for HIGH confidence at full coverage.
	HighMaxCoreTables int `yaml:"high_max_core_tables"`

	// MediumMaxCoreTables is the largest core-table count accepted for
	// MEDIUM confidence at full coverage.
	MediumMaxCoreTables int `yaml:"medium_max_core_tables"`
}

// Validate checks the weight table for values that would break engine
// invariants.
//
// Outputs:
//
//	error - Description of the first invalid field, or nil.
func (w *ScoringWeights) Validate() error {
	if w.MaxCandidates < 1 {
		return fmt.Errorf("max_candidates must be >= 1, got %d", w.MaxCandidates)
	}
	if w.MinFallback < 1 {
		return fmt.Errorf("min_fallback must be >= 1, got %d", w.MinFallback)
	}
	if w.RelativeThreshold < 0 || w.RelativeThreshold > 1 {
		return fmt.Errorf("relative_threshold must be in [0,1], got %g", w.RelativeThreshold)
	}
	if w.TableSimilarityFloor < 0 || w.TableSimilarityFloor > 1 {
		return fmt.Errorf("table_similarity_floor must be in [0,1], got %g", w.TableSimilarityFloor)
	}
	if w.ColumnSimilarityFloor < 0 || w.ColumnSimilarityFloor > 1 {
		return fmt.Errorf("column_similarity_floor must be in [0,1], got %g", w.ColumnSimilarityFloor)
	}
	if w.AnchorCount < 1 {
		return fmt.Errorf("anchor_count must be >= 1, got %d", w.AnchorCount)
	}
	if w.RescueMinConnections < 2 {
		return fmt.Errorf("rescue_min_connections must be >= 2, got %d", w.RescueMinConnections)
	}
	if w.HighCoverage < w.MediumCoverage {
		return fmt.Errorf("high_coverage (%g) must be >= medium_coverage (%g)",
			w.HighCoverage, w.MediumCoverage)
	}
	if w.HighMaxCoreTables > w.MediumMaxCoreTables {
		return fmt.Errorf("high_max_core_tables (%d) must be <= medium_max_core_tables (%d)",
			w.HighMaxCoreTables, w.MediumMaxCoreTables)
	}
	return nil
}

var (
	cachedWeights     *ScoringWeights
	scoringWeightsOnce sync.Once
	scoringWeightsErr  error
)

// LoadScoringWeights loads and caches the scoring weight table.
//
// Description:
//
//	Parses the embedded scoring_weights.yaml, or the file named by the
//	TABLESCOUT_WEIGHTS environment variable when set. The result is cached;
//	subsequent calls return the same instance.
//
// Outputs:
//
//	*ScoringWeights - The validated weight table.
//	error - Parse or validation failure. Fatal at startup (there is no
//	        sensible scoring without a weight table).
//
// Thread Safety: Safe for concurrent use.
func LoadScoringWeights() (*ScoringWeights, error) {
	scoringWeightsOnce.Do(func() {
		data := defaultScoringWeightsYAML
		if path := os.Getenv("TABLESCOUT_WEIGHTS"); path != "" {
			override, err := os.ReadFile(path)
			if err != nil {
				scoringWeightsErr = fmt.Errorf("reading TABLESCOUT_WEIGHTS %q: %w", path, err)
				return
			}
			data = override
		}
		cachedWeights, scoringWeightsErr = ParseScoringWeights(data)
	})
	return cachedWeights, scoringWeightsErr
}

// ParseScoringWeights parses and validates a YAML weight table.
//
// Unlike LoadScoringWeights, this does not cache; tests use it to build
// alternate weight tables.
func ParseScoringWeights(data []byte) (*ScoringWeights, error) {
	var w ScoringWeights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing scoring weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}
	return &w, nil
}

// DefaultScoringWeights returns the embedded default weight table.
//
// Panics if the embedded YAML is invalid, which is a build defect rather
// than a runtime condition. Tests and fixtures use this constructor.
func DefaultScoringWeights() *ScoringWeights {
	w, err := ParseScoringWeights(defaultScoringWeightsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded scoring_weights.yaml invalid: %v", err))
	}
	return w
}
