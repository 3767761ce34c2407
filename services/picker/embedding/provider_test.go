// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	v := []float32{0.6, 0.8}
	if sim := CosineSimilarity(v, v); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("CosineSimilarity(v, v) = %g, want 1.0", sim)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	if sim := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); sim != 0 {
		t.Errorf("orthogonal vectors score %g, want 0", sim)
	}
}

func TestCosineSimilarity_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"both empty", nil, nil},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}},
		{"zero vector", []float32{0, 0}, []float32{1, 0}},
	}
	for _, tc := range cases {
		if sim := CosineSimilarity(tc.a, tc.b); sim != 0 {
			t.Errorf("%s: got %g, want 0", tc.name, sim)
		}
	}
}

func TestCosineSimilarity_ClampsNegative(t *testing.T) {
	// Opposed vectors have cosine -1; the engine treats that as no match.
	if sim := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); sim != 0 {
		t.Errorf("opposed vectors score %g, want 0 after clamping", sim)
	}
}

func TestNormalize_UnitLength(t *testing.T) {
	v := normalize([]float32{3, 4})

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-6 {
		t.Errorf("normalized vector has length %g, want 1", math.Sqrt(norm))
	}
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := normalize([]float32{0, 0, 0})
	for i, x := range v {
		if x != 0 {
			t.Errorf("zero vector mutated at index %d: %g", i, x)
		}
	}
}
