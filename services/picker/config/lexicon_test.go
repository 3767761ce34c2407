// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import "testing"

func TestDefaultLexicon_FamiliesPopulated(t *testing.T) {
	l := DefaultLexicon()

	families := map[string][]string{
		"stopwords":          l.Stopwords,
		"vague_terms":        l.VagueTerms,
		"temporal_intent":    l.TemporalIntent,
		"numerical_intent":   l.NumericalIntent,
		"categorical_intent": l.CategoricalIntent,
		"filtering_intent":   l.FilteringIntent,
		"grouping_intent":    l.GroupingIntent,
		"aggregation_intent": l.AggregationIntent,
	}
	for name, words := range families {
		if len(words) == 0 {
			t.Errorf("family %s is empty", name)
		}
	}
}

func TestLexicon_StopwordSet(t *testing.T) {
	set := DefaultLexicon().StopwordSet()

	for _, w := range []string{"show", "the", "me", "what"} {
		if _, ok := set[w]; !ok {
			t.Errorf("stopword set missing %q", w)
		}
	}
	if _, ok := set["students"]; ok {
		t.Error("content word classified as stopword")
	}
}

func TestLexicon_VagueTermSet(t *testing.T) {
	l := DefaultLexicon()
	vague := l.VagueTermSet()
	stop := l.StopwordSet()

	if _, ok := vague["data"]; !ok {
		t.Error("vague set missing \"data\"")
	}

	// Vague terms survive term extraction, so they must not also be stopwords.
	for _, w := range l.VagueTerms {
		if _, ok := stop[w]; ok {
			t.Errorf("%q is both vague term and stopword", w)
		}
	}
}

func TestParseLexicon_RejectsEmptyStoplist(t *testing.T) {
	if _, err := ParseLexicon([]byte("vague_terms: [data]")); err == nil {
		t.Error("lexicon without stopwords accepted")
	}
	if _, err := ParseLexicon([]byte("stopwords: [not closed")); err == nil {
		t.Error("malformed YAML accepted")
	}
}
