// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package picker exposes the table relevance engine as an HTTP service:
// scoring pipeline, catalog inspection, and health reporting.
package picker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/AretaiLabs/tablescout/services/picker/kg"
	"github.com/AretaiLabs/tablescout/services/picker/scoring"
)

// Service wires the relevance engine to the catalog store and assembles the
// selection responses handed to HTTP clients.
//
// Thread Safety: Safe for concurrent use. The store and engine are read-only
// after construction.
type Service struct {
	store   *kg.Store
	engine  *scoring.Engine
	vectors scoring.VectorStore
	logger  *slog.Logger
}

// NewService creates a picker service over a loaded catalog.
//
// Inputs:
//
//	store - Loaded catalog. Must not be nil.
//	engine - Configured relevance engine. Must not be nil.
//	vectors - Vector store for health reporting. May be nil.
//	logger - Nil falls back to slog.Default.
func NewService(store *kg.Store, engine *scoring.Engine, vectors scoring.VectorStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, engine: engine, vectors: vectors, logger: logger}
}

// SelectTables ranks the catalog against a query and packages the result.
//
// Description:
//
//	Runs the full scoring pipeline, then joins the surviving candidates back
//	against the FK graph so the response carries every edge among them. An
//	empty selection is a valid outcome and still carries a confidence
//	verdict with a recommendation.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) SelectTables(ctx context.Context, req SelectRequest) (*Selection, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	result := s.engine.Rank(ctx, req.Query)

	candidates := result.Candidates
	if req.MaxTables > 0 && req.MaxTables < len(candidates) {
		candidates = candidates[:req.MaxTables]
	}

	selection := &Selection{
		Query:            req.Query,
		SelectedTables:   toSelectedTables(candidates),
		Confidence:       result.Confidence,
		Entities:         result.Entities,
		IsGeneric:        result.IsGeneric,
		IsDomainMismatch: result.IsDomainMismatch,
	}

	if len(candidates) > 1 {
		names := make([]string, 0, len(candidates))
		for _, c := range candidates {
			names = append(names, c.TableName)
		}
		selection.Relationships = s.store.RelationshipsBetween(names)
	}

	if req.IncludeScores {
		selection.AllScores = toSelectedTables(result.AllScores)
	}
	return selection, nil
}

// ListTables returns summaries of every catalog table, sorted by name.
func (s *Service) ListTables() *ListTablesResponse {
	names := s.store.ListTables()
	resp := &ListTablesResponse{Tables: make([]TableSummary, 0, len(names))}
	for _, name := range names {
		meta, ok := s.store.GetTable(name)
		if !ok {
			continue
		}
		resp.Tables = append(resp.Tables, TableSummary{
			Name:        meta.Name,
			RowCount:    meta.RowCount,
			ColumnCount: meta.ColumnCount,
			Centrality:  meta.NormalizedCentrality,
			IsHubTable:  meta.IsHubTable,
		})
	}
	sort.Slice(resp.Tables, func(i, j int) bool { return resp.Tables[i].Name < resp.Tables[j].Name })
	resp.Count = len(resp.Tables)
	return resp
}

// GetTable returns one table's full metadata and every FK edge touching it.
func (s *Service) GetTable(name string) (*TableDetailResponse, error) {
	meta, ok := s.store.GetTable(name)
	if !ok {
		return nil, kg.ErrTableNotFound
	}
	return &TableDetailResponse{
		Table:         meta,
		Relationships: s.store.Relationships(name),
	}, nil
}

// Health reports catalog size and semantic readiness.
func (s *Service) Health() *HealthResponse {
	resp := &HealthResponse{
		Status:     "ok",
		TableCount: len(s.store.ListTables()),
	}
	if s.vectors != nil {
		resp.SemanticReady = s.vectors.Ready()
	}
	if snap := s.store.Snapshot(); snap != nil {
		resp.SnapshotHash = snap.Hash()
	}
	return resp
}

// toSelectedTables projects engine scores onto the response shape.
func toSelectedTables(scores []*scoring.TableScore) []SelectedTable {
	out := make([]SelectedTable, 0, len(scores))
	for _, ts := range scores {
		out = append(out, SelectedTable{
			TableName:      ts.TableName,
			RelevanceScore: ts.TotalScore(),
			BaseScore:      ts.BaseScore,
			FKBoost:        ts.FKBoost,
			Reasons:        ts.Reasons,
			MatchedColumns: ts.MatchedColumnList(),
		})
	}
	return out
}
