// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestOllama points a provider at a stub HTTP server.
func newTestOllama(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("EMBEDDING_SERVICE_URL", srv.URL)
	t.Setenv("EMBEDDING_MODEL", "test-model")
	return NewOllamaProvider(nil)
}

func TestOllamaProvider_EmbedNormalizes(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("request model = %q, want test-model", req.Model)
		}
		if len(req.Input) != 1 || req.Input[0] != "student grades" {
			t.Errorf("request input = %v", req.Input)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embeddings: [][]float32{{3, 4}}})
	})

	vec, err := provider.Embed(context.Background(), "student grades")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-6 {
		t.Errorf("returned vector has length %g, want unit", math.Sqrt(norm))
	}
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResp{
			Embeddings: [][]float32{{1, 0}, {0, 1}},
		})
	})

	vecs, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}

	// Empty input never hits the server.
	vecs, err = provider.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v; want nil, nil", vecs, err)
	}
}

func TestOllamaProvider_BatchCountMismatch(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embeddings: [][]float32{{1, 0}}})
	})

	if _, err := provider.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("vector count mismatch not reported")
	}
}

func TestOllamaProvider_NonOKStatus(t *testing.T) {
	provider := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := provider.Embed(context.Background(), "anything")
	if err == nil {
		t.Fatal("non-200 response not reported")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error %q missing status and body snippet", err)
	}
}
