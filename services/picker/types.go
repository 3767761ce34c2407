// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package picker

import (
	"github.com/AretaiLabs/tablescout/services/picker/kg"
	"github.com/AretaiLabs/tablescout/services/picker/scoring"
)

// =============================================================================
// Request types
// =============================================================================

// SelectRequest is the body of POST /v1/picker/select.
type SelectRequest struct {
	// Query is the natural-language question to select tables for.
	Query string `json:"query" binding:"required"`

	// MaxTables optionally tightens the candidate cap below the configured
	// maximum. Zero means use the configured value.
	MaxTables int `json:"max_tables,omitempty"`

	// IncludeScores returns the full pre-filter score list for debugging.
	IncludeScores bool `json:"include_scores,omitempty"`
}

// =============================================================================
// Response types
// =============================================================================

// SelectedTable is one chosen table in a selection response.
type SelectedTable struct {
	TableName string `json:"table_name"`

	// RelevanceScore is BaseScore + FKBoost, the final ranking score.
	RelevanceScore float64 `json:"relevance_score"`

	BaseScore float64 `json:"base_score"`
	FKBoost   float64 `json:"fk_boost"`

	// Reasons is the audit trail of every scoring decision that contributed.
	Reasons []string `json:"reasons,omitempty"`

	// MatchedColumns lists columns that produced at least one signal.
	MatchedColumns []string `json:"matched_columns,omitempty"`
}

// Selection is the full answer to one select request: ranked tables, the
// FK edges among them, and a confidence verdict a caller can gate on.
type Selection struct {
	Query string `json:"query"`

	SelectedTables []SelectedTable `json:"selected_tables"`

	// Relationships holds the FK edges among the selected tables so a
	// downstream planner can build joins without re-reading the catalog.
	Relationships []kg.Relationship `json:"relationships,omitempty"`

	Confidence *scoring.ConfidenceResult `json:"confidence"`

	// Entities are the data-bearing query terms the analyzer extracted.
	Entities []string `json:"entities,omitempty"`

	IsGeneric        bool `json:"is_generic"`
	IsDomainMismatch bool `json:"is_domain_mismatch"`

	// AllScores is the full pre-filter ranking. Only populated when the
	// request asked for it.
	AllScores []SelectedTable `json:"all_scores,omitempty"`
}

// TableSummary is the list-view projection of one catalog table.
type TableSummary struct {
	Name        string  `json:"name"`
	RowCount    int64   `json:"row_count"`
	ColumnCount int     `json:"column_count"`
	Centrality  float64 `json:"centrality"`
	IsHubTable  bool    `json:"is_hub_table,omitempty"`
}

// ListTablesResponse is the body of GET /v1/picker/tables.
type ListTablesResponse struct {
	Tables []TableSummary `json:"tables"`
	Count  int            `json:"count"`
}

// TableDetailResponse is the body of GET /v1/picker/tables/:name.
type TableDetailResponse struct {
	Table         *kg.TableMetadata `json:"table"`
	Relationships []kg.Relationship `json:"relationships,omitempty"`
}

// HealthResponse is the body of GET /v1/picker/health.
type HealthResponse struct {
	Status string `json:"status"`

	// TableCount is the size of the loaded catalog.
	TableCount int `json:"table_count"`

	// SemanticReady reports whether embedding vectors are warmed. The
	// service answers queries either way; false means lexical-only.
	SemanticReady bool `json:"semantic_ready"`

	SnapshotHash string `json:"snapshot_hash,omitempty"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
