// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"strings"
)

// ConfidenceLevel gates what the caller may do with the selection.
type ConfidenceLevel string

const (
	// ConfidenceHigh: proceed to SQL generation automatically.
	ConfidenceHigh ConfidenceLevel = "HIGH"

	// ConfidenceMedium: request clarification before generating.
	ConfidenceMedium ConfidenceLevel = "MEDIUM"

	// ConfidenceLow: restrict scope or reject, showing the recommendation.
	ConfidenceLow ConfidenceLevel = "LOW"
)

// Representative confidence scores per verdict branch. The level is the
// contract; the score is a monotone summary for dashboards and thresholds.
const (
	confidenceScoreHigh   = 0.9
	confidenceScoreMedium = 0.6
	confidenceScoreLow    = 0.3
	confidenceScoreNone   = 0.1
)

// ConfidenceResult is the calibrated verdict over a final candidate list.
type ConfidenceResult struct {
	// Score is a monotone summary of the verdict in [0,1].
	Score float64 `json:"confidence_score"`

	// Level is the three-way decision callers branch on.
	Level ConfidenceLevel `json:"confidence_level"`

	// TopBaseScore and TotalBaseScore are computed over core tables only.
	TopBaseScore   float64 `json:"top_base_score"`
	TotalBaseScore float64 `json:"total_base_score"`

	// NumCandidates counts the full candidate list; NumCoreTables the
	// subset with a core-strength base score.
	NumCandidates int `json:"num_candidates"`
	NumCoreTables int `json:"num_core_tables"`

	// EntityCoverage is the fraction of query entities matched by at least
	// one core table.
	EntityCoverage float64 `json:"entity_coverage"`

	// IsDomainMismatch carries the mismatch gate's flag through to callers.
	IsDomainMismatch bool `json:"is_domain_mismatch"`

	// Recommendation is shown to the user on MEDIUM and LOW verdicts.
	Recommendation string `json:"recommendation"`
}

// calculateConfidence converts the final candidate list into a three-level
// verdict with a coverage rationale.
//
// Description:
//
//	Operates on BaseScore only: a candidate living off FKBoost is a join
//	bridge, not a confident core match, and must not raise confidence.
//
//	Core tables are candidates with BaseScore >= CoreTableThreshold. The
//	decision ladder, in order:
//
//	  coverage >= 0.9 and <= 4 core tables  → HIGH
//	  coverage >= 0.9 and <= 8 core tables  → MEDIUM (many valid tables,
//	                                          ambiguous which to combine)
//	  coverage >= 0.6                       → MEDIUM
//	  exactly 1 core table                  → HIGH (unambiguous winner,
//	                                          even at partial coverage)
//	  otherwise                             → LOW
//
//	A domain-mismatch flag short-circuits to LOW before the ladder. An
//	empty candidate list is an early LOW with an explicit no-match message,
//	a first-class outcome rather than an error.
func (e *Engine) calculateConfidence(candidates []*TableScore, entities []string, mismatch bool) *ConfidenceResult {
	if mismatch {
		return &ConfidenceResult{
			Score:            confidenceScoreNone,
			Level:            ConfidenceLow,
			NumCandidates:    len(candidates),
			IsDomainMismatch: true,
			Recommendation: "Query appears unrelated to this database's domain; " +
				"no table covers the requested entities. Rephrase using concepts from the catalog.",
		}
	}

	if len(candidates) == 0 {
		return &ConfidenceResult{
			Score: confidenceScoreNone,
			Level: ConfidenceLow,
			Recommendation: "No relevant tables found for this query. " +
				"Rephrase using table or column names from the catalog.",
		}
	}

	var core []*TableScore
	for _, c := range candidates {
		if c.BaseScore >= e.weights.CoreTableThreshold {
			core = append(core, c)
		}
	}

	result := &ConfidenceResult{
		NumCandidates: len(candidates),
		NumCoreTables: len(core),
	}

	if len(core) == 0 {
		result.Score = confidenceScoreLow
		result.Level = ConfidenceLow
		result.Recommendation = "No table matched strongly enough to trust. " +
			"Restrict the scope or name the subject more specifically."
		return result
	}

	for _, c := range core {
		if c.BaseScore > result.TopBaseScore {
			result.TopBaseScore = c.BaseScore
		}
		result.TotalBaseScore += c.BaseScore
	}
	result.EntityCoverage = entityCoverage(core, entities)

	w := e.weights
	switch {
	case result.EntityCoverage >= w.HighCoverage && len(core) <= w.HighMaxCoreTables:
		result.Score = confidenceScoreHigh
		result.Level = ConfidenceHigh
		result.Recommendation = "Strong coverage across a small core set; safe to generate SQL."

	case result.EntityCoverage >= w.HighCoverage && len(core) <= w.MediumMaxCoreTables:
		result.Score = confidenceScoreMedium
		result.Level = ConfidenceMedium
		result.Recommendation = "All query entities are covered, but by many tables; " +
			"ask which of " + joinTableNames(core) + " to combine."

	case result.EntityCoverage >= w.MediumCoverage:
		result.Score = confidenceScoreMedium
		result.Level = ConfidenceMedium
		result.Recommendation = "Partial entity coverage; request clarification before generating SQL."

	case len(core) == 1:
		result.Score = confidenceScoreHigh
		result.Level = ConfidenceHigh
		result.Recommendation = "Single unambiguous matching table; safe to generate SQL."

	default:
		result.Score = confidenceScoreLow
		result.Level = ConfidenceLow
		result.Recommendation = "Low coverage of query entities; " +
			"SQL generation is unsafe without clarification."
	}
	return result
}

// entityCoverage is |entities covered by any core table| / |entities|, or
// 1.0 when the query had no meaningful entities but core tables exist.
func entityCoverage(core []*TableScore, entities []string) float64 {
	if len(entities) == 0 {
		return 1.0
	}
	covered := 0
	for _, entity := range entities {
		for _, c := range core {
			if _, ok := c.MatchedEntities[entity]; ok {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(entities))
}

func joinTableNames(scores []*TableScore) string {
	names := make([]string, len(scores))
	for i, s := range scores {
		names[i] = s.TableName
	}
	return strings.Join(names, ", ")
}
