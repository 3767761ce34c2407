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
	"strings"
	"testing"

	"github.com/AretaiLabs/tablescout/services/picker/config"
	"github.com/AretaiLabs/tablescout/services/picker/kg"
)

// makeTestStore builds a small academic catalog: students and courses joined
// by a grades fact table and an enrollment_link junction table whose columns
// carry no lexical signal, plus a high-centrality departments hub.
func makeTestStore() *kg.Store {
	snapshot := &kg.Snapshot{
		SchemaVersion: kg.SnapshotSchemaVersion,
		Tables: []*kg.TableMetadata{
			{
				Name: "students",
				Columns: map[string]*kg.ColumnMetadata{
					"student_id": {Name: "student_id", SemanticType: kg.SemanticIdentifier, IsPrimaryKey: true},
					"name":       {Name: "name", SemanticType: kg.SemanticText},
					"gpa":        {Name: "gpa", SemanticType: kg.SemanticNumerical, GoodForAggregation: true},
				},
				ReferencedBy: []string{"enrollment_link", "grades"},
			},
			{
				Name: "courses",
				Columns: map[string]*kg.ColumnMetadata{
					"course_id":     {Name: "course_id", SemanticType: kg.SemanticIdentifier, IsPrimaryKey: true},
					"title":         {Name: "title", SemanticType: kg.SemanticText},
					"department_id": {Name: "department_id", SemanticType: kg.SemanticIdentifier, IsForeignKey: true, ForeignKeyTargets: []string{"departments"}},
				},
				References:   []string{"departments"},
				ReferencedBy: []string{"enrollment_link", "grades"},
			},
			{
				Name: "grades",
				Columns: map[string]*kg.ColumnMetadata{
					"grade_id":    {Name: "grade_id", SemanticType: kg.SemanticIdentifier, IsPrimaryKey: true},
					"student_id":  {Name: "student_id", SemanticType: kg.SemanticIdentifier, IsForeignKey: true, ForeignKeyTargets: []string{"students"}},
					"course_id":   {Name: "course_id", SemanticType: kg.SemanticIdentifier, IsForeignKey: true, ForeignKeyTargets: []string{"courses"}},
					"grade_value": {Name: "grade_value", SemanticType: kg.SemanticNumerical, GoodForAggregation: true},
					"graded_date": {Name: "graded_date", SemanticType: kg.SemanticTemporal},
				},
				References: []string{"courses", "students"},
			},
			{
				Name: "enrollment_link",
				Columns: map[string]*kg.ColumnMetadata{
					"link_id": {Name: "link_id", SemanticType: kg.SemanticIdentifier, IsPrimaryKey: true},
					"sid":     {Name: "sid", SemanticType: kg.SemanticIdentifier, IsForeignKey: true, ForeignKeyTargets: []string{"students"}},
					"cid":     {Name: "cid", SemanticType: kg.SemanticIdentifier, IsForeignKey: true, ForeignKeyTargets: []string{"courses"}},
				},
				References: []string{"courses", "students"},
			},
			{
				Name: "departments",
				Columns: map[string]*kg.ColumnMetadata{
					"department_id": {Name: "department_id", SemanticType: kg.SemanticIdentifier, IsPrimaryKey: true},
					"dept_name":     {Name: "dept_name", SemanticType: kg.SemanticText},
				},
				ReferencedBy:         []string{"courses"},
				NormalizedCentrality: 0.8,
				IsHubTable:           true,
			},
		},
	}
	return kg.NewStore(snapshot)
}

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(makeTestStore(), config.DefaultScoringWeights(), config.DefaultLexicon(), slog.Default(), opts...)
}

func candidateNames(result *Result) []string {
	names := make([]string, len(result.Candidates))
	for i, c := range result.Candidates {
		names[i] = c.TableName
	}
	return names
}

func findCandidate(result *Result, name string) *TableScore {
	for _, c := range result.Candidates {
		if c.TableName == name {
			return c
		}
	}
	return nil
}

// =============================================================================
// Scenario: Specific Query
// =============================================================================

func TestRank_SpecificQuery_HighConfidence(t *testing.T) {
	e := newTestEngine()

	result := e.Rank(context.Background(), "show me student grades")

	students := findCandidate(result, "students")
	grades := findCandidate(result, "grades")
	if students == nil || grades == nil {
		t.Fatalf("expected students and grades among candidates, got %v", candidateNames(result))
	}

	// Table-name match (10) plus one column-name match (5) each.
	if students.BaseScore != 15 {
		t.Errorf("students BaseScore = %g, want 15", students.BaseScore)
	}
	if grades.BaseScore != 15 {
		t.Errorf("grades BaseScore = %g, want 15", grades.BaseScore)
	}

	if result.Confidence.Level != ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH (coverage %g, core %d)",
			result.Confidence.Level, result.Confidence.EntityCoverage, result.Confidence.NumCoreTables)
	}
	if result.Confidence.EntityCoverage != 1.0 {
		t.Errorf("entity coverage = %g, want 1.0", result.Confidence.EntityCoverage)
	}
	if result.IsGeneric {
		t.Error("specific query classified as generic")
	}
	if result.IsDomainMismatch {
		t.Error("specific in-domain query classified as mismatch")
	}
}

func TestRank_SpecificQuery_CentralityStaysCapped(t *testing.T) {
	e := newTestEngine()

	result := e.Rank(context.Background(), "show me student grades")

	// The hub gets the mixed-query centrality boost (0.8 × 5 = 4), which must
	// stay below the absolute threshold and out of the candidate set.
	if c := findCandidate(result, "departments"); c != nil {
		t.Errorf("hub table admitted on centrality alone (score %g)", c.TotalScore())
	}
	for _, ts := range result.AllScores {
		if ts.TableName == "departments" {
			if ts.BaseScore != 4 {
				t.Errorf("departments BaseScore = %g, want 4 (0.8 × mixed cap 5)", ts.BaseScore)
			}
		}
	}
}

// =============================================================================
// Scenario: Generic Query
// =============================================================================

func TestRank_GenericQuery_CentralityFallback(t *testing.T) {
	e := newTestEngine()

	result := e.Rank(context.Background(), "show me data")

	if !result.IsGeneric {
		t.Fatal("'show me data' should classify as generic")
	}
	if result.IsDomainMismatch {
		t.Fatal("generic query must not classify as domain mismatch")
	}

	dep := findCandidate(result, "departments")
	if dep == nil {
		t.Fatalf("expected the hub table as a candidate, got %v", candidateNames(result))
	}
	// Full generic boost: 0.8 × 10, into BaseScore.
	if dep.BaseScore != 8 {
		t.Errorf("departments BaseScore = %g, want 8", dep.BaseScore)
	}
	if dep.FKBoost != 0 {
		t.Errorf("centrality landed in FKBoost (%g); it is a relevance proxy, not a relationship", dep.FKBoost)
	}

	foundHubReason := false
	for _, r := range dep.Reasons {
		if strings.Contains(r, "hub table") {
			foundHubReason = true
		}
	}
	if !foundHubReason {
		t.Errorf("hub reason missing, got %v", dep.Reasons)
	}

	// Centrality alone never reaches core strength.
	if result.Confidence.Level != ConfidenceLow {
		t.Errorf("confidence = %s, want LOW for a generic query", result.Confidence.Level)
	}
}

// =============================================================================
// Scenario: Domain Mismatch
// =============================================================================

func TestRank_DomainMismatch_LexicalGate(t *testing.T) {
	e := newTestEngine()

	result := e.Rank(context.Background(), "show me weather data")

	if !result.IsDomainMismatch {
		t.Fatal("'weather' names an entity the catalog cannot match; expected mismatch")
	}
	if result.IsGeneric {
		t.Error("mismatch query must not fall through to the generic path")
	}
	if len(result.Candidates) != 0 {
		t.Errorf("expected no candidates, got %v", candidateNames(result))
	}
	if result.Confidence.Level != ConfidenceLow {
		t.Errorf("confidence = %s, want LOW", result.Confidence.Level)
	}
	if !result.Confidence.IsDomainMismatch {
		t.Error("confidence result should carry the mismatch flag")
	}
	if result.Confidence.Recommendation == "" {
		t.Error("mismatch verdict should carry a recommendation")
	}
}

func TestRank_EmptyCandidatesIsValid(t *testing.T) {
	e := newTestEngine()

	// Off-domain entities produce an empty candidate set with a verdict,
	// never a panic or a forced non-empty set.
	result := e.Rank(context.Background(), "quarterly meteorological precipitation")

	if len(result.Candidates) != 0 {
		t.Errorf("expected empty candidates, got %v", candidateNames(result))
	}
	if result.Confidence == nil {
		t.Fatal("empty outcome must still carry a confidence result")
	}
	if result.Confidence.Level != ConfidenceLow {
		t.Errorf("confidence = %s, want LOW", result.Confidence.Level)
	}
}

// =============================================================================
// Scenario: Junction Table Rescue
// =============================================================================

func TestRank_JunctionTableRescue(t *testing.T) {
	e := newTestEngine()

	result := e.Rank(context.Background(), "students courses")

	link := findCandidate(result, "enrollment_link")
	if link == nil {
		t.Fatalf("junction table not rescued, candidates: %v", candidateNames(result))
	}

	// Rescued purely on connectivity: FK points only, no base relevance.
	if link.BaseScore != 0 {
		t.Errorf("rescued table BaseScore = %g, want 0", link.BaseScore)
	}
	if link.FKBoost != 8 {
		t.Errorf("rescued table FKBoost = %g, want 8 (4 × 2 anchors)", link.FKBoost)
	}
	if len(link.Reasons) == 0 || !strings.HasPrefix(link.Reasons[0], "[rescued]") {
		t.Errorf("rescue reason missing or unmarked: %v", link.Reasons)
	}

	// Connectivity must not lift confidence: core tables are still the two
	// lexical matches, and the verdict stays HIGH on their coverage.
	if result.Confidence.NumCoreTables != 2 {
		t.Errorf("core tables = %d, want 2 (rescued bridge is not core)", result.Confidence.NumCoreTables)
	}
	if result.Confidence.Level != ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", result.Confidence.Level)
	}
}

func TestRank_SingleEdgeNeverRescues(t *testing.T) {
	e := newTestEngine()

	result := e.Rank(context.Background(), "students courses")

	// departments touches only the courses anchor; one edge is ordinary FK
	// adjacency, not bridge evidence.
	if c := findCandidate(result, "departments"); c != nil {
		t.Errorf("departments rescued on a single anchor connection (score %g)", c.TotalScore())
	}
}

// =============================================================================
// Determinism
// =============================================================================

func TestRank_Idempotent(t *testing.T) {
	e := newTestEngine()

	first := e.Rank(context.Background(), "student grades by course")
	second := e.Rank(context.Background(), "student grades by course")

	if len(first.Candidates) != len(second.Candidates) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first.Candidates), len(second.Candidates))
	}
	for i := range first.Candidates {
		a, b := first.Candidates[i], second.Candidates[i]
		if a.TableName != b.TableName {
			t.Errorf("rank %d differs: %q vs %q", i, a.TableName, b.TableName)
		}
		if a.BaseScore != b.BaseScore || a.FKBoost != b.FKBoost {
			t.Errorf("%s scores differ: (%g,%g) vs (%g,%g)",
				a.TableName, a.BaseScore, a.FKBoost, b.BaseScore, b.FKBoost)
		}
	}
	if first.Confidence.Level != second.Confidence.Level {
		t.Errorf("confidence differs: %s vs %s", first.Confidence.Level, second.Confidence.Level)
	}
}

func TestRank_WorkerCountDoesNotChangeRanking(t *testing.T) {
	serial := newTestEngine(WithWorkers(1))
	parallel := newTestEngine(WithWorkers(8))

	queries := []string{
		"show me student grades",
		"students courses",
		"show me data",
		"average grade value per course",
	}
	for _, q := range queries {
		a := serial.Rank(context.Background(), q)
		b := parallel.Rank(context.Background(), q)

		an, bn := candidateNames(a), candidateNames(b)
		if len(an) != len(bn) {
			t.Fatalf("query %q: candidate counts differ: %v vs %v", q, an, bn)
		}
		for i := range an {
			if an[i] != bn[i] {
				t.Errorf("query %q rank %d: %q vs %q", q, i, an[i], bn[i])
			}
		}
	}
}

// =============================================================================
// Intent Signals
// =============================================================================

func TestRank_IntentSignalsBoundPerVariant(t *testing.T) {
	e := newTestEngine()

	// "average" triggers numerical intent; both gpa and grade_value qualify
	// on the grades/students tables, but only one numerical award lands per
	// table.
	result := e.Rank(context.Background(), "average student grades")

	grades := findCandidate(result, "grades")
	if grades == nil {
		t.Fatalf("grades not a candidate: %v", candidateNames(result))
	}
	if got := grades.SignalCount(SignalSemanticType, SubtypeNumerical); got != 1 {
		t.Errorf("numerical semantic-type awards = %d, want 1", got)
	}
	if got := grades.SignalCount(SignalHint, SubtypeAggregation); got != 1 {
		t.Errorf("aggregation hint awards = %d, want 1", got)
	}
}
