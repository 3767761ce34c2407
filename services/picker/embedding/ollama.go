// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// embedQueryTimeout is the per-call embedding timeout. Query embedding sits
// on the ranking hot path; 3 seconds is ample for a local Ollama call.
const embedQueryTimeout = 3 * time.Second

// ollamaEmbedReq is the Ollama /api/embed request body.
type ollamaEmbedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResp is the Ollama /api/embed response body.
type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaProvider embeds text via Ollama's /api/embed endpoint.
//
// Description:
//
//	Returns unit-normalized vectors. Instantiated from the environment:
//	EMBEDDING_SERVICE_URL (default local Ollama) and EMBEDDING_MODEL
//	(default nomic-embed-text). The provider is stateless beyond its HTTP
//	client; failures surface as errors for the engine to degrade on.
//
// Thread Safety: Safe for concurrent use.
type OllamaProvider struct {
	url    string
	model  string
	client *http.Client
	logger *slog.Logger
}

// NewOllamaProvider creates a provider from the environment.
func NewOllamaProvider(logger *slog.Logger) *OllamaProvider {
	if logger == nil {
		logger = slog.Default()
	}

	url := os.Getenv("EMBEDDING_SERVICE_URL")
	if url == "" {
		url = "http://localhost:11434/api/embed"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "nomic-embed-text"
	}

	return &OllamaProvider{
		url:   url,
		model: model,
		client: &http.Client{
			// Warm-up batches can be slow; query calls tighten this per-call.
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Model returns the configured embedding model name, which participates in
// the vector-store cache key.
func (p *OllamaProvider) Model() string {
	return p.model
}

// Embed implements Provider with a hot-path per-call timeout.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, embedQueryTimeout)
	defer cancel()

	vecs, err := p.call(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider. No tightened timeout: batch calls run
// during warm-up under the caller's deadline.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := p.call(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	return vecs, nil
}

func (p *OllamaProvider) call(ctx context.Context, input []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedReq{Model: p.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}

	for i := range parsed.Embeddings {
		parsed.Embeddings[i] = normalize(parsed.Embeddings[i])
	}
	return parsed.Embeddings, nil
}
