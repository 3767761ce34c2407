// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Query Lexicon
// =============================================================================

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon holds the word lists that drive term extraction and intent
// detection.
//
// Description:
//
//	Stopwords are dropped during term extraction. Vague terms survive term
//	extraction but are excluded from the entity list used for coverage math
//	("data" is a real term but not an entity a table could cover). Intent
//	families map query vocabulary to semantic-type and optimization-hint
//	signals.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Lexicon struct {
	// Stopwords are query tokens carrying no retrieval signal.
	Stopwords []string `yaml:"stopwords"`

	// VagueTerms are domain-agnostic nouns excluded from entity extraction.
	VagueTerms []string `yaml:"vague_terms"`

	// TemporalIntent triggers the temporal semantic-type signal.
	TemporalIntent []string `yaml:"temporal_intent"`

	// NumericalIntent triggers the numerical semantic-type signal.
	NumericalIntent []string `yaml:"numerical_intent"`

	// CategoricalIntent triggers the categorical semantic-type signal.
	CategoricalIntent []string `yaml:"categorical_intent"`

	// FilteringIntent triggers the good-for-filtering hint signal.
	FilteringIntent []string `yaml:"filtering_intent"`

	// GroupingIntent triggers the good-for-grouping hint signal.
	GroupingIntent []string `yaml:"grouping_intent"`

	// AggregationIntent triggers the good-for-aggregation hint signal.
	AggregationIntent []string `yaml:"aggregation_intent"`
}

// StopwordSet returns the stopwords as a lookup set.
func (l *Lexicon) StopwordSet() map[string]struct{} {
	return toSet(l.Stopwords)
}

// VagueTermSet returns the vague terms as a lookup set.
func (l *Lexicon) VagueTermSet() map[string]struct{} {
	return toSet(l.VagueTerms)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var (
	cachedLexicon *Lexicon
	lexiconOnce   sync.Once
	lexiconErr    error
)

// LoadLexicon loads and caches the query lexicon from the embedded YAML.
// Returns the cached result on subsequent calls.
//
// Thread Safety: Safe for concurrent use.
func LoadLexicon() (*Lexicon, error) {
	lexiconOnce.Do(func() {
		cachedLexicon, lexiconErr = ParseLexicon(defaultLexiconYAML)
	})
	return cachedLexicon, lexiconErr
}

// ParseLexicon parses a YAML lexicon without caching.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	if len(l.Stopwords) == 0 {
		return nil, fmt.Errorf("lexicon has no stopwords")
	}
	return &l, nil
}

// DefaultLexicon returns the embedded lexicon, panicking on a build defect.
func DefaultLexicon() *Lexicon {
	l, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon.yaml invalid: %v", err))
	}
	return l
}
