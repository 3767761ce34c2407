// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AretaiLabs/tablescout/services/picker/kg"
)

// scoreAllTables evaluates the lexical signal families for every table in
// the catalog and returns the scores sorted by total score descending.
//
// Description:
//
//	Embarrassingly parallel: each table's pass reads only immutable
//	metadata and writes only its own TableScore, so tables fan out across
//	workers with results landing in pre-sized slots. The sort afterwards is
//	the single join point.
func (e *Engine) scoreAllTables(ctx context.Context, query string, terms []string) []*TableScore {
	ctx, span := engineTracer.Start(ctx, "scoring.Engine.scoreAllTables")
	defer span.End()

	tables := e.store.ListTables()
	scores := make([]*TableScore, len(tables))
	intent := detectIntent(query, e.lexicon)

	var concepts []string
	if ca, ok := e.analyzer.(ConceptAnalyzer); ok {
		concepts = ca.ExtractMultiWordConcepts(query)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, name := range tables {
		g.Go(func() error {
			scores[i] = e.scoreTable(name, terms, concepts, intent)
			return nil
		})
	}
	// Workers return no errors; per-table misses score zero instead.
	_ = g.Wait()

	sortByScore(scores)
	span.SetAttributes(attribute.Int("tables", len(tables)))
	return scores
}

// scoreTable runs every lexical signal family for one table.
func (e *Engine) scoreTable(tableName string, terms, concepts []string, intent queryIntent) *TableScore {
	ts := NewTableScore(tableName)

	meta, ok := e.store.GetTable(tableName)
	if !ok {
		// Vanished between listing and fetch; zero score, batch continues.
		return ts
	}

	e.scoreTableName(ts, tableName, terms, concepts)
	e.scoreColumnNames(ts, meta, terms)
	e.scoreSynonyms(ts, meta, terms)
	e.scoreSemanticTypes(ts, meta, intent)
	e.scoreSampleValues(ts, meta, terms)
	e.scoreTopValues(ts, meta, terms)
	e.scoreHints(ts, meta, intent)

	return ts
}

// scoreTableName awards the strongest lexical signal: query terms matching
// table-name tokens. Multi-word concepts from a richer analyzer land here
// too; a concept whose every word matches is a table-name match in spirit.
func (e *Engine) scoreTableName(ts *TableScore, tableName string, terms, concepts []string) {
	for _, term := range terms {
		if TokenMatch(term, tableName) {
			ts.Add(Award{
				Points:        e.weights.TableNameMatch,
				Reason:        fmt.Sprintf("table name contains '%s'", term),
				Kind:          SignalTableName,
				MatchedEntity: term,
			})
		}
	}
	for _, concept := range concepts {
		if conceptMatchesIdentifier(concept, tableName) {
			ts.Add(Award{
				Points:        e.weights.TableNameMatch,
				Reason:        fmt.Sprintf("table name matches concept '%s'", concept),
				Kind:          SignalTableName,
				MatchedEntity: concept,
			})
		}
	}
}

// scoreColumnNames awards per-term column-name token matches, capped at 3
// per table so wide tables cannot win on column count alone.
func (e *Engine) scoreColumnNames(ts *TableScore, meta *kg.TableMetadata, terms []string) {
	for _, col := range orderedColumns(meta) {
		for _, term := range terms {
			if TokenMatch(term, col.Name) {
				ts.Add(Award{
					Points:        e.weights.ColumnNameMatch,
					Reason:        fmt.Sprintf("column '%s' matches '%s'", col.Name, term),
					Kind:          SignalColumnName,
					Column:        col.Name,
					MatchedEntity: term,
				})
			}
		}
	}
}

// scoreSynonyms awards curated-synonym matches, capped at 2 per table.
func (e *Engine) scoreSynonyms(ts *TableScore, meta *kg.TableMetadata, terms []string) {
	for _, col := range orderedColumns(meta) {
		if len(col.Synonyms) == 0 {
			continue
		}
		synonyms := make(map[string]struct{}, len(col.Synonyms))
		for _, s := range col.Synonyms {
			synonyms[normalizeQueryKey(s)] = struct{}{}
		}
		for _, term := range terms {
			if _, ok := synonyms[term]; ok {
				ts.Add(Award{
					Points:        e.weights.SynonymMatch,
					Reason:        fmt.Sprintf("column '%s' synonym matches '%s'", col.Name, term),
					Kind:          SignalSynonym,
					Column:        col.Name,
					MatchedEntity: term,
				})
			}
		}
	}
}

// scoreSemanticTypes awards intent/semantic-type alignment, one award per
// type variant regardless of how many columns carry it.
func (e *Engine) scoreSemanticTypes(ts *TableScore, meta *kg.TableMetadata, intent queryIntent) {
	for _, col := range orderedColumns(meta) {
		if intent.temporal && col.SemanticType == kg.SemanticTemporal {
			ts.Add(Award{
				Points:  e.weights.SemanticTypeMatch,
				Reason:  fmt.Sprintf("has temporal column '%s' (query mentions dates)", col.Name),
				Kind:    SignalSemanticType,
				Subtype: SubtypeTemporal,
				Column:  col.Name,
			})
		}
		if intent.numerical && col.SemanticType == kg.SemanticNumerical {
			ts.Add(Award{
				Points:  e.weights.SemanticTypeMatch,
				Reason:  fmt.Sprintf("has numerical column '%s' (query needs aggregation)", col.Name),
				Kind:    SignalSemanticType,
				Subtype: SubtypeNumerical,
				Column:  col.Name,
			})
		}
		if intent.categorical && col.SemanticType == kg.SemanticCategorical {
			ts.Add(Award{
				Points:  e.weights.SemanticTypeMatch,
				Reason:  fmt.Sprintf("has categorical column '%s' (query needs grouping)", col.Name),
				Kind:    SignalSemanticType,
				Subtype: SubtypeCategorical,
				Column:  col.Name,
			})
		}
	}
}

// scoreSampleValues awards term hits in tokenized sample values, so a value
// like "Computer Science" matches the query term "computer".
func (e *Engine) scoreSampleValues(ts *TableScore, meta *kg.TableMetadata, terms []string) {
	for _, col := range orderedColumns(meta) {
		if len(col.SampleValues) == 0 {
			continue
		}
		tokens := tokenizeValues(col.SampleValues)
		for _, term := range terms {
			if _, ok := tokens[term]; ok {
				ts.Add(Award{
					Points: e.weights.SampleValueMatch,
					Reason: fmt.Sprintf("column '%s' has sample value containing '%s'", col.Name, term),
					Kind:   SignalSampleValue,
					Column: col.Name,
				})
			}
		}
	}
}

// scoreTopValues awards term hits in the tokenized top values of
// categorical columns.
func (e *Engine) scoreTopValues(ts *TableScore, meta *kg.TableMetadata, terms []string) {
	for _, col := range orderedColumns(meta) {
		if len(col.TopValues) == 0 {
			continue
		}
		tokens := tokenizeValues(col.TopValues)
		for _, term := range terms {
			if _, ok := tokens[term]; ok {
				ts.Add(Award{
					Points: e.weights.TopValueMatch,
					Reason: fmt.Sprintf("'%s' is a token in top values of '%s'", term, col.Name),
					Kind:   SignalTopValue,
					Column: col.Name,
				})
			}
		}
	}
}

// scoreHints awards optimization-hint alignment with the query operation,
// one award per hint variant.
func (e *Engine) scoreHints(ts *TableScore, meta *kg.TableMetadata, intent queryIntent) {
	for _, col := range orderedColumns(meta) {
		if intent.filtering && col.GoodForFiltering {
			ts.Add(Award{
				Points:  e.weights.HintMatch,
				Reason:  fmt.Sprintf("column '%s' is good for filtering", col.Name),
				Kind:    SignalHint,
				Subtype: SubtypeFiltering,
				Column:  col.Name,
			})
		}
		if intent.grouping && col.GoodForGrouping {
			ts.Add(Award{
				Points:  e.weights.HintMatch,
				Reason:  fmt.Sprintf("column '%s' is good for grouping", col.Name),
				Kind:    SignalHint,
				Subtype: SubtypeGrouping,
				Column:  col.Name,
			})
		}
		if intent.aggregation && col.GoodForAggregation {
			ts.Add(Award{
				Points:  e.weights.HintMatch,
				Reason:  fmt.Sprintf("column '%s' is good for aggregation", col.Name),
				Kind:    SignalHint,
				Subtype: SubtypeAggregation,
				Column:  col.Name,
			})
		}
	}
}

// conceptMatchesIdentifier reports whether every word of a multi-word
// concept token-matches the identifier.
func conceptMatchesIdentifier(concept, identifier string) bool {
	words := wordPattern.FindAllString(concept, -1)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !TokenMatch(w, identifier) {
			return false
		}
	}
	return true
}

// orderedColumns returns a table's columns sorted by name. Capped signals
// make award order observable, so column iteration must be deterministic for
// scoring to be idempotent.
func orderedColumns(meta *kg.TableMetadata) []*kg.ColumnMetadata {
	cols := make([]*kg.ColumnMetadata, 0, len(meta.Columns))
	for _, c := range meta.Columns {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols
}
