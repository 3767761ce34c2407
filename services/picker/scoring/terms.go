// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"regexp"
	"strings"

	"github.com/AretaiLabs/tablescout/services/picker/config"
)

// minTermLength drops one-character tokens that match everything and mean
// nothing.
const minTermLength = 2

// minPrefixLength is the shortest query term allowed to prefix-match an
// identifier token. Exact matches have no length requirement; the prefix
// rule is what lets "stude" reach "student" while "at" cannot reach
// "status".
const minPrefixLength = 3

// QueryAnalyzer turns raw query text into normalized terms and entities.
//
// Description:
//
//	The engine's linguistic dependency. The built-in Extractor covers the
//	lexicon-based contract; a richer NLP analyzer can be injected instead.
//	Terms drive scoring; entities drive only coverage math.
type QueryAnalyzer interface {
	// ExtractTerms returns deduplicated normalized terms with stopwords,
	// pure-digit tokens, and too-short tokens removed.
	ExtractTerms(query string) []string

	// ExtractEntities returns the term subset that names concrete things:
	// stopwords and domain-agnostic vague nouns are excluded.
	ExtractEntities(query string) []string
}

// ConceptAnalyzer is an optional extension for analyzers that detect
// multi-word concepts ("computer science"). Concepts feed an additive
// table-name signal; analyzers without the capability are simply not asked.
type ConceptAnalyzer interface {
	ExtractMultiWordConcepts(query string) []string
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// camelBoundary matches a lower-to-upper transition for camelCase splitting.
var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// TokenizeIdentifier splits a table or column identifier into lower-case
// word tokens.
//
// Description:
//
//	Handles underscores (student_id), hyphens (batch-no), camelCase
//	(StudentID), and spaces (Contact Info). Token-based matching against
//	these tokens is what rejects substring false positives like "at" inside
//	"status".
func TokenizeIdentifier(identifier string) map[string]struct{} {
	expanded := strings.NewReplacer("_", " ", "-", " ").Replace(identifier)
	expanded = camelBoundary.ReplaceAllString(expanded, "$1 $2")

	tokens := make(map[string]struct{})
	for _, tok := range wordPattern.FindAllString(strings.ToLower(expanded), -1) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// TokenMatch reports whether a query term matches an identifier under
// token-based matching: exact token equality, or, for terms of at least
// minPrefixLength, a prefix of a token.
func TokenMatch(term, identifier string) bool {
	term = strings.ToLower(term)
	tokens := TokenizeIdentifier(identifier)

	if _, ok := tokens[term]; ok {
		return true
	}
	if len(term) >= minPrefixLength {
		for tok := range tokens {
			if strings.HasPrefix(tok, term) {
				return true
			}
		}
	}
	return false
}

// tokenizeValues splits free-text values ("Computer Science") into a
// lower-case word-token set, so the value matches the query term "computer"
// rather than requiring the whole string.
func tokenizeValues(values []string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, v := range values {
		for _, tok := range wordPattern.FindAllString(strings.ToLower(v), -1) {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Extractor is the built-in lexicon-based QueryAnalyzer.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Extractor struct {
	lexicon   *config.Lexicon
	stopwords map[string]struct{}
	vague     map[string]struct{}
}

// NewExtractor builds an Extractor over a lexicon. A nil lexicon falls back
// to the embedded default.
func NewExtractor(lexicon *config.Lexicon) *Extractor {
	if lexicon == nil {
		lexicon = config.DefaultLexicon()
	}
	return &Extractor{
		lexicon:   lexicon,
		stopwords: lexicon.StopwordSet(),
		vague:     lexicon.VagueTermSet(),
	}
}

// Lexicon returns the lexicon the extractor was built over.
func (e *Extractor) Lexicon() *config.Lexicon {
	return e.lexicon
}

// ExtractTerms implements QueryAnalyzer.
func (e *Extractor) ExtractTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		if len(tok) < minTermLength {
			continue
		}
		if isAllDigits(tok) {
			continue
		}
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// ExtractEntities implements QueryAnalyzer.
func (e *Extractor) ExtractEntities(query string) []string {
	terms := e.ExtractTerms(query)
	entities := terms[:0:0]
	for _, t := range terms {
		if _, vague := e.vague[t]; vague {
			continue
		}
		entities = append(entities, t)
	}
	return entities
}

// IsGenericTerm reports whether a term belongs to the stopword/vague union.
// The generic-query classifier uses it to decide whether any term carries a
// specific ask.
func (e *Extractor) IsGenericTerm(term string) bool {
	if _, stop := e.stopwords[term]; stop {
		return true
	}
	_, vague := e.vague[term]
	return vague
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// intentlike keyword detection, shared by the semantic-type and hint
// signal families.

// queryIntent captures which intent families the query vocabulary triggers.
type queryIntent struct {
	temporal    bool
	numerical   bool
	categorical bool

	filtering   bool
	grouping    bool
	aggregation bool
}

// detectIntent scans the raw query for the lexicon's intent families.
// Matching is on whole word tokens, not substrings, for the same reason
// identifier matching is.
func detectIntent(query string, lex *config.Lexicon) queryIntent {
	tokens := make(map[string]struct{})
	for _, tok := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		tokens[tok] = struct{}{}
	}
	anyOf := func(words []string) bool {
		for _, w := range words {
			if _, ok := tokens[w]; ok {
				return true
			}
		}
		return false
	}
	return queryIntent{
		temporal:    anyOf(lex.TemporalIntent),
		numerical:   anyOf(lex.NumericalIntent),
		categorical: anyOf(lex.CategoricalIntent),
		filtering:   anyOf(lex.FilteringIntent),
		grouping:    anyOf(lex.GroupingIntent),
		aggregation: anyOf(lex.AggregationIntent),
	}
}
