// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package kg holds the knowledge-graph metadata model the relevance engine
// scores against: per-table structural metadata with column statistics,
// foreign-key edges, and precomputed graph centrality. The metadata is built
// by an external profiling pipeline and consumed here as a read-only,
// versioned snapshot.
package kg

// SemanticType classifies what a column's values mean, independent of the
// native SQL type.
type SemanticType string

const (
	SemanticIdentifier  SemanticType = "IDENTIFIER"
	SemanticCategorical SemanticType = "CATEGORICAL"
	SemanticNumerical   SemanticType = "NUMERICAL"
	SemanticTemporal    SemanticType = "TEMPORAL"
	SemanticText        SemanticType = "TEXT"
	SemanticBoolean     SemanticType = "BOOLEAN"
	SemanticUnknown     SemanticType = "UNKNOWN"
)

// ColumnMetadata is the profiled metadata of one column.
//
// Thread Safety: Immutable after snapshot load; safe for concurrent reads.
type ColumnMetadata struct {
	// Name is the column identifier as it appears in the schema.
	Name string `json:"name"`

	// NativeType is the database type (e.g. "varchar(64)").
	NativeType string `json:"native_type"`

	// SemanticType is the inferred meaning of the values.
	SemanticType SemanticType `json:"semantic_type"`

	// IsNullable reports whether the column admits NULLs.
	IsNullable bool `json:"is_nullable"`

	// NullPercentage is the observed fraction of NULLs, in percent.
	NullPercentage float64 `json:"null_percentage,omitempty"`

	// CardinalityRatio is unique values over row count, in [0,1].
	CardinalityRatio float64 `json:"cardinality_ratio,omitempty"`

	// UniqueCount is the number of distinct observed values.
	UniqueCount int `json:"unique_count,omitempty"`

	// IsPrimaryKey and IsForeignKey are schema-derived key flags.
	IsPrimaryKey bool `json:"is_primary_key,omitempty"`
	IsForeignKey bool `json:"is_foreign_key,omitempty"`

	// ForeignKeyTargets lists the tables this column references.
	ForeignKeyTargets []string `json:"foreign_key_targets,omitempty"`

	// SampleValues are representative observed values.
	SampleValues []string `json:"sample_values,omitempty"`

	// TopValues are the most frequent values of a categorical column.
	TopValues []string `json:"top_values,omitempty"`

	// Synonyms are curated alternative names for query matching.
	Synonyms []string `json:"synonyms,omitempty"`

	// Description is an optional human-written column description.
	Description string `json:"description,omitempty"`

	// Optimization hints from the profiling pipeline.
	GoodForFiltering   bool `json:"good_for_filtering,omitempty"`
	GoodForGrouping    bool `json:"good_for_grouping,omitempty"`
	GoodForAggregation bool `json:"good_for_aggregation,omitempty"`

	// DetectedPattern is an optional value pattern (EMAIL, URL, UUID, ...).
	DetectedPattern string `json:"detected_pattern,omitempty"`
}

// TableMetadata is the profiled metadata of one table, including its
// position in the foreign-key graph.
//
// Thread Safety: Immutable after snapshot load; safe for concurrent reads.
type TableMetadata struct {
	// Name is the table identifier.
	Name string `json:"name"`

	// RowCount and ColumnCount are snapshot-time sizes.
	RowCount    int64 `json:"row_count"`
	ColumnCount int   `json:"column_count"`

	// Columns holds per-column metadata keyed by column name.
	Columns map[string]*ColumnMetadata `json:"columns"`

	// ReferencedBy lists tables holding foreign keys into this table.
	ReferencedBy []string `json:"referenced_by,omitempty"`

	// References lists tables this table holds foreign keys into.
	References []string `json:"references,omitempty"`

	// DegreeCentrality is the raw FK degree (in + out).
	DegreeCentrality int `json:"degree_centrality,omitempty"`

	// NormalizedCentrality is degree centrality scaled to [0,1] over the
	// catalog. Precomputed by the graph pipeline; derived at load time for
	// older snapshots that predate it.
	NormalizedCentrality float64 `json:"normalized_centrality,omitempty"`

	// IsHubTable marks tables with outstanding centrality.
	IsHubTable bool `json:"is_hub_table,omitempty"`
}

// Column returns the metadata of one column, or nil if absent.
func (t *TableMetadata) Column(name string) *ColumnMetadata {
	return t.Columns[name]
}

// RelatedTables returns the union of FK neighbors in both directions,
// deduplicated, in stable (sorted input) order.
func (t *TableMetadata) RelatedTables() []string {
	seen := make(map[string]struct{}, len(t.ReferencedBy)+len(t.References))
	related := make([]string, 0, len(t.ReferencedBy)+len(t.References))
	for _, lists := range [][]string{t.References, t.ReferencedBy} {
		for _, name := range lists {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			related = append(related, name)
		}
	}
	return related
}

// Relationship is one foreign-key edge between two tables, reported to
// callers alongside the selection so they can plan joins. Join SQL synthesis
// is the caller's concern.
type Relationship struct {
	FromTable  string `json:"from_table"`
	ToTable    string `json:"to_table"`
	FromColumn string `json:"from_column"`
	ToColumn   string `json:"to_column"`

	// Type is the relationship kind; FK edges are schema-defined.
	Type string `json:"relationship_type"`

	// Confidence is 1.0 for schema-defined edges, lower for inferred ones.
	Confidence float64 `json:"confidence"`

	// RecommendedJoin is the join type a downstream planner should start
	// from. FK edges default to LEFT to preserve driving-table rows.
	RecommendedJoin string `json:"recommended_join_type"`
}
