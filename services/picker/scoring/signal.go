// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scoring implements the table relevance engine: a multi-signal
// scorer with per-signal caps, an adaptive threshold filter, a foreign-key
// relationship booster with junction-table rescue, a centrality fallback for
// generic queries, domain-mismatch detection, and coverage-based confidence
// calculation. It ranks a catalog of profiled tables against a natural-
// language query and reports whether downstream SQL generation may proceed.
package scoring

// SignalKind identifies one scoring signal family.
type SignalKind string

const (
	// SignalTableName: a query term matched a table-name token.
	SignalTableName SignalKind = "table_name_match"

	// SignalColumnName: a query term matched a column-name token.
	SignalColumnName SignalKind = "column_name_match"

	// SignalSynonym: a query term equals a curated column synonym.
	SignalSynonym SignalKind = "synonym_match"

	// SignalSemanticType: a column's semantic type matches query intent.
	SignalSemanticType SignalKind = "semantic_type_match"

	// SignalSemanticSimilarity: embedding cosine similarity above a floor.
	SignalSemanticSimilarity SignalKind = "semantic_similarity"

	// SignalSampleValue: a query term appears in tokenized sample values.
	SignalSampleValue SignalKind = "sample_value_match"

	// SignalTopValue: a query term appears in tokenized top values.
	SignalTopValue SignalKind = "top_value_match"

	// SignalHint: an optimization hint matches the query operation.
	SignalHint SignalKind = "hint_match"

	// SignalFKRelationship: FK proximity to an anchor candidate. The only
	// kind that accrues to FKBoost rather than BaseScore.
	SignalFKRelationship SignalKind = "fk_relationship"

	// SignalCentrality: normalized graph centrality, applied to generic
	// queries as a relevance proxy.
	SignalCentrality SignalKind = "centrality"
)

// Signal subtype keys for the per-variant caps.
const (
	SubtypeTemporal    = "temporal"
	SubtypeNumerical   = "numerical"
	SubtypeCategorical = "categorical"

	SubtypeFiltering   = "filtering"
	SubtypeGrouping    = "grouping"
	SubtypeAggregation = "aggregation"
)

// signalCaps declares the per-table award cap of each capped signal kind.
// Caps stop wide tables from winning on raw column count: a table with forty
// name-matching columns is not eight times more relevant than one with five.
//
// Kinds absent from both tables are uncapped.
var signalCaps = map[SignalKind]int{
	SignalColumnName:         3,
	SignalSynonym:            2,
	SignalSemanticSimilarity: 3, // table level + top 2 columns
}

// subtypeCaps declares per-subtype caps for signal kinds whose variants cap
// independently (one temporal match, one numerical match, ...).
var subtypeCaps = map[SignalKind]int{
	SignalSemanticType: 1,
	SignalHint:         1,
}

// capKey builds the counter key for a (kind, subtype) pair. Subtyped kinds
// count per variant; everything else counts per kind.
func capKey(kind SignalKind, subtype string) string {
	if subtype == "" {
		return string(kind)
	}
	return string(kind) + ":" + subtype
}

// capFor returns the declared cap for a (kind, subtype) pair and whether one
// exists.
func capFor(kind SignalKind, subtype string) (int, bool) {
	if subtype != "" {
		if cap, ok := subtypeCaps[kind]; ok {
			return cap, true
		}
	}
	cap, ok := signalCaps[kind]
	return cap, ok
}
