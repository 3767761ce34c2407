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
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AretaiLabs/tablescout/services/picker/kg"
	badgerstore "github.com/AretaiLabs/tablescout/services/picker/storage/badger"
)

// warmConcurrency bounds parallel provider calls during warm-up. Ten
// concurrent requests saturates a local Ollama without overwhelming it.
const warmConcurrency = 10

// vectorCacheTTL is the lifetime of persisted vectors. Long enough to
// survive weekends and short deployments without accumulating stale data.
const vectorCacheTTL = 7 * 24 * time.Hour

// vectorCacheKeyPrefix namespaces the persisted entries. Versioned to allow
// future format changes without collision.
const vectorCacheKeyPrefix = "picker/emb/v1/"

// persistedVectors is the gob-encoded payload layout.
type persistedVectors struct {
	Tables  map[string][]float32
	Columns map[string][]float32 // "table\x00column" → vector
}

// VectorStore holds precomputed table-level and column-level embedding
// vectors for the whole catalog.
//
// Description:
//
//	Warm() embeds an identity document per table (name, column names,
//	descriptions) and one per described column, in parallel. Vectors are
//	persisted to BadgerDB keyed by snapshot hash + model name: any catalog
//	or model change produces a fresh key, so stale vectors simply expire
//	under TTL with no explicit invalidation.
//
//	If the provider is unavailable at warm-up, the store stays unwarmed
//	and the engine scores lexical-only. A nil *badgerstore.DB disables
//	persistence (in-memory-only mode, correct for tests).
//
// Thread Safety: Safe for concurrent use after Warm completes.
type VectorStore struct {
	mu      sync.RWMutex
	tables  map[string][]float32
	columns map[string][]float32
	warmed  bool

	provider Provider
	model    string
	db       *badgerstore.DB
	logger   *slog.Logger
}

// NewVectorStore creates an unwarmed store. db may be nil to disable
// persistence; model names the embedding model for cache keying.
func NewVectorStore(provider Provider, model string, db *badgerstore.DB, logger *slog.Logger) *VectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStore{
		tables:   make(map[string][]float32),
		columns:  make(map[string][]float32),
		provider: provider,
		model:    model,
		db:       db,
		logger:   logger,
	}
}

// Ready implements the engine's VectorStore contract.
func (s *VectorStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warmed
}

// TableVector returns the precomputed vector of a table.
func (s *VectorStore) TableVector(name string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tables[name]
	return v, ok
}

// ColumnVector returns the precomputed vector of a column.
func (s *VectorStore) ColumnVector(table, column string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.columns[columnKey(table, column)]
	return v, ok
}

// Warm computes (or loads) vectors for every table in the snapshot.
//
// Description:
//
//	Checks BadgerDB first; on a hit the provider is never called. On a
//	miss, tables embed in parallel under a concurrency limit; individual
//	failures are logged and skipped, not fatal. The store marks itself
//	warmed if any vector landed. Persistence failure is non-fatal: the
//	vectors are already in RAM.
func (s *VectorStore) Warm(ctx context.Context, snapshot *kg.Snapshot) error {
	if s.provider == nil || len(snapshot.Tables) == 0 {
		return nil
	}

	cacheKey := s.cacheKey(snapshot)
	if s.loadPersisted(cacheKey) {
		return nil
	}

	s.logger.Info("vector store: starting embedding warm-up",
		slog.Int("tables", len(snapshot.Tables)),
		slog.String("model", s.model),
	)

	// Each worker accumulates its vectors locally and merges under the
	// mutex once done. Workers never block on a shared channel, so a
	// wide catalog cannot stall the fan-out.
	var merge sync.Mutex
	tableVecs := make(map[string][]float32, len(snapshot.Tables))
	columnVecs := make(map[string][]float32)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, table := range snapshot.Tables {
		g.Go(func() error {
			vec, err := s.provider.Embed(gctx, tableDocument(table))
			if err != nil {
				s.logger.Warn("vector store: failed to embed table",
					slog.String("table", table.Name),
					slog.String("error", err.Error()),
				)
				return nil
			}

			local := make(map[string][]float32)
			for _, col := range orderedColumns(table) {
				if col.Description == "" && len(col.Synonyms) == 0 {
					// Bare columns are covered by the table document.
					continue
				}
				colVec, err := s.provider.Embed(gctx, columnDocument(table.Name, col))
				if err != nil {
					continue
				}
				local[columnKey(table.Name, col.Name)] = colVec
			}

			merge.Lock()
			tableVecs[table.Name] = vec
			for k, v := range local {
				columnVecs[k] = v
			}
			merge.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("vector store warm-up: %w", err)
	}

	s.mu.Lock()
	for k, v := range tableVecs {
		s.tables[k] = v
	}
	for k, v := range columnVecs {
		s.columns[k] = v
	}
	s.warmed = len(s.tables) > 0
	tableCount, columnCount := len(s.tables), len(s.columns)
	var toSave *persistedVectors
	if s.warmed && s.db != nil {
		toSave = &persistedVectors{
			Tables:  make(map[string][]float32, tableCount),
			Columns: make(map[string][]float32, columnCount),
		}
		for k, v := range s.tables {
			toSave.Tables[k] = v
		}
		for k, v := range s.columns {
			toSave.Columns[k] = v
		}
	}
	s.mu.Unlock()

	s.logger.Info("vector store: warm-up complete",
		slog.Int("table_vectors", tableCount),
		slog.Int("column_vectors", columnCount),
	)

	if toSave != nil {
		if err := s.persist(cacheKey, toSave); err != nil {
			s.logger.Warn("vector store: failed to persist vectors",
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// cacheKey derives the persistence key from snapshot content and model.
func (s *VectorStore) cacheKey(snapshot *kg.Snapshot) string {
	sum := sha256.Sum256([]byte(snapshot.Hash() + "\x00" + s.model))
	return vectorCacheKeyPrefix + hex.EncodeToString(sum[:])
}

// loadPersisted fills the store from BadgerDB. Returns true on a hit.
func (s *VectorStore) loadPersisted(cacheKey string) bool {
	if s.db == nil {
		return false
	}
	data, err := s.db.Get([]byte(cacheKey))
	if errors.Is(err, badgerstore.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("vector store: cache load failed, re-embedding",
			slog.String("error", err.Error()))
		return false
	}

	var payload persistedVectors
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		s.logger.Warn("vector store: cache decode failed, re-embedding",
			slog.String("error", err.Error()))
		return false
	}

	s.mu.Lock()
	s.tables = payload.Tables
	s.columns = payload.Columns
	if s.columns == nil {
		s.columns = make(map[string][]float32)
	}
	s.warmed = len(s.tables) > 0
	s.mu.Unlock()

	s.logger.Info("vector store: loaded vectors from cache",
		slog.Int("table_vectors", len(payload.Tables)),
		slog.Int("column_vectors", len(payload.Columns)),
	)
	return true
}

// persist writes the payload under TTL.
func (s *VectorStore) persist(cacheKey string, payload *persistedVectors) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("encoding vectors: %w", err)
	}
	return s.db.SetWithTTL([]byte(cacheKey), buf.Bytes(), vectorCacheTTL)
}

// tableDocument builds the identity text embedded for a table: its name,
// column names, and any column descriptions.
func tableDocument(table *kg.TableMetadata) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(table.Name, "_", " "))
	for _, col := range orderedColumns(table) {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(col.Name, "_", " "))
		if col.Description != "" {
			b.WriteString(" ")
			b.WriteString(col.Description)
		}
	}
	return b.String()
}

// columnDocument builds the identity text for a described column.
func columnDocument(tableName string, col *kg.ColumnMetadata) string {
	parts := []string{
		strings.ReplaceAll(tableName, "_", " "),
		strings.ReplaceAll(col.Name, "_", " "),
	}
	if col.Description != "" {
		parts = append(parts, col.Description)
	}
	parts = append(parts, col.Synonyms...)
	return strings.Join(parts, " ")
}

func columnKey(table, column string) string {
	return table + "\x00" + column
}

// orderedColumns iterates a table's column map in name order so the
// identity documents, and therefore the vectors, are stable across runs.
func orderedColumns(table *kg.TableMetadata) []*kg.ColumnMetadata {
	cols := make([]*kg.ColumnMetadata, 0, len(table.Columns))
	for _, col := range table.Columns {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols
}
