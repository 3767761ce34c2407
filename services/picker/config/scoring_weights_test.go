// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"strings"
	"testing"
)

func TestDefaultScoringWeights_Parses(t *testing.T) {
	w := DefaultScoringWeights()

	if w.TableNameMatch != 10 {
		t.Errorf("TableNameMatch = %g, want 10", w.TableNameMatch)
	}
	if w.MaxCandidates != 8 {
		t.Errorf("MaxCandidates = %d, want 8", w.MaxCandidates)
	}
	if w.AbsoluteThreshold != 5 {
		t.Errorf("AbsoluteThreshold = %g, want 5", w.AbsoluteThreshold)
	}
	if err := w.Validate(); err != nil {
		t.Errorf("embedded defaults fail validation: %v", err)
	}
}

func TestDefaultScoringWeights_SignalOrdering(t *testing.T) {
	w := DefaultScoringWeights()

	// The relative ordering is the contract the engine's thresholds assume.
	ordered := []struct {
		name          string
		higher, lower float64
	}{
		{"table name vs semantic", w.TableNameMatch, w.SemanticSimilarity},
		{"semantic vs synonym", w.SemanticSimilarity, w.SynonymMatch},
		{"synonym vs column name", w.SynonymMatch, w.ColumnNameMatch},
		{"column name vs fk", w.ColumnNameMatch, w.FKRelationship},
		{"fk vs intent", w.FKRelationship, w.SemanticTypeMatch},
		{"intent vs value", w.SemanticTypeMatch, w.SampleValueMatch},
	}
	for _, pair := range ordered {
		if pair.higher <= pair.lower {
			t.Errorf("%s: %g <= %g", pair.name, pair.higher, pair.lower)
		}
	}
	if w.CentralityBoostCap >= w.ColumnNameMatch {
		t.Errorf("centrality cap %g must stay below a column-name match %g",
			w.CentralityBoostCap, w.ColumnNameMatch)
	}
}

func TestParseScoringWeights_RejectsInvalid(t *testing.T) {
	valid := map[string]string{
		"max_candidates":          "8",
		"min_fallback":            "5",
		"relative_threshold":      "0.3",
		"table_similarity_floor":  "0.7",
		"column_similarity_floor": "0.6",
		"anchor_count":            "3",
		"rescue_min_connections":  "2",
		"high_coverage":           "0.9",
		"medium_coverage":         "0.6",
		"high_max_core_tables":    "4",
		"medium_max_core_tables":  "8",
	}
	render := func(field, value string) []byte {
		var b strings.Builder
		for k, v := range valid {
			if k == field {
				v = value
			}
			b.WriteString(k + ": " + v + "\n")
		}
		return []byte(b.String())
	}

	cases := []struct {
		name         string
		field, value string
	}{
		{"zero candidates", "max_candidates", "0"},
		{"relative threshold above one", "relative_threshold", "1.5"},
		{"single-edge rescue", "rescue_min_connections", "1"},
		{"inverted coverage", "high_coverage", "0.5"},
		{"inverted core bounds", "high_max_core_tables", "9"},
	}
	for _, tc := range cases {
		_, err := ParseScoringWeights(render(tc.field, tc.value))
		if err == nil {
			t.Errorf("%s: invalid weights accepted", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.field) {
			t.Errorf("%s: error %q does not name %q", tc.name, err, tc.field)
		}
	}
}

func TestParseScoringWeights_RejectsMalformedYAML(t *testing.T) {
	if _, err := ParseScoringWeights([]byte("max_candidates: [not a number")); err == nil {
		t.Error("malformed YAML accepted")
	}
}
