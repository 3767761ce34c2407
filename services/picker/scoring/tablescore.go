// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"sort"
)

// TableScore is the accumulated relevance evidence for one (query, table)
// pair.
//
// Description:
//
//	BaseScore answers "is this table semantically relevant?". It sums every
//	non-relationship signal. FKBoost answers "is this table contextually
//	connected to relevant tables?" and is kept separate because confidence
//	must never be inflated by connectivity alone. Both only ever increase;
//	no signal removes points.
//
//	Every accepted award is recorded three ways: into Signals (points per
//	kind, for explainability), into Reasons (human-readable, in award
//	order), and into the private cap counters.
//
// Thread Safety: NOT safe for concurrent use. Each TableScore is owned by
// exactly one scoring goroutine; parallel scoring works because no two
// goroutines share one.
type TableScore struct {
	// TableName is the scored table.
	TableName string `json:"table_name"`

	// BaseScore sums all non-relationship signal points.
	BaseScore float64 `json:"base_score"`

	// FKBoost sums relationship-derived points only.
	FKBoost float64 `json:"fk_boost"`

	// Signals holds accumulated points per signal kind.
	Signals map[SignalKind]float64 `json:"signals,omitempty"`

	// Reasons lists one human-readable justification per accepted award,
	// in award order.
	Reasons []string `json:"reasons,omitempty"`

	// MatchedColumns are the columns that produced at least one signal.
	MatchedColumns map[string]struct{} `json:"-"`

	// MatchedEntities are the lower-cased query entities that produced at
	// least one accepted signal. Used only for coverage math.
	MatchedEntities map[string]struct{} `json:"-"`

	// signalCounts tracks accepted awards per cap key. Owned exclusively by
	// this TableScore; never shared.
	signalCounts map[string]int
}

// NewTableScore returns an empty score for one table.
func NewTableScore(tableName string) *TableScore {
	return &TableScore{
		TableName:       tableName,
		Signals:         make(map[SignalKind]float64),
		MatchedColumns:  make(map[string]struct{}),
		MatchedEntities: make(map[string]struct{}),
		signalCounts:    make(map[string]int),
	}
}

// TotalScore is the ranking key: base relevance plus relationship boost.
func (ts *TableScore) TotalScore() float64 {
	return ts.BaseScore + ts.FKBoost
}

// Award is one accepted or rejected point grant.
type Award struct {
	// Points to add on acceptance.
	Points float64

	// Reason is the human-readable justification recorded on acceptance.
	Reason string

	// Kind is the signal family, used for cap lookup and the signal vector.
	Kind SignalKind

	// Subtype sub-keys the cap counter for per-variant capped kinds
	// (semantic types, hints).
	Subtype string

	// Column is recorded into MatchedColumns when non-empty.
	Column string

	// MatchedEntity is the query term that produced the signal, recorded
	// for coverage math when non-empty.
	MatchedEntity string

	// IsRelationship routes the points into FKBoost instead of BaseScore.
	IsRelationship bool
}

// Add applies an award, enforcing the declared signal caps.
//
// Description:
//
//	The single cap-check-and-increment path for every signal family. If the
//	counter for the award's cap key has already reached its declared cap,
//	the award is rejected with no mutation at all: no points, no reason,
//	no matched column or entity.
//
// Outputs:
//
//	bool - true if the award was accepted.
func (ts *TableScore) Add(a Award) bool {
	key := capKey(a.Kind, a.Subtype)
	if cap, capped := capFor(a.Kind, a.Subtype); capped {
		if ts.signalCounts[key] >= cap {
			return false
		}
	}
	ts.signalCounts[key]++

	if a.IsRelationship {
		ts.FKBoost += a.Points
	} else {
		ts.BaseScore += a.Points
	}
	ts.Signals[a.Kind] += a.Points
	ts.Reasons = append(ts.Reasons, a.Reason)
	if a.Column != "" {
		ts.MatchedColumns[a.Column] = struct{}{}
	}
	if a.MatchedEntity != "" {
		ts.MatchedEntities[a.MatchedEntity] = struct{}{}
	}
	return true
}

// SignalCount reports the accepted-award count for a cap key. Exposed for
// cap-enforcement checks in tests.
func (ts *TableScore) SignalCount(kind SignalKind, subtype string) int {
	return ts.signalCounts[capKey(kind, subtype)]
}

// MatchedColumnList returns the matched columns in sorted order.
func (ts *TableScore) MatchedColumnList() []string {
	return sortedKeys(ts.MatchedColumns)
}

// MatchedEntityList returns the matched entities in sorted order.
func (ts *TableScore) MatchedEntityList() []string {
	return sortedKeys(ts.MatchedEntities)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sortByScore orders scores by total score descending, breaking ties by
// table name so identical inputs always rank identically.
func sortByScore(scores []*TableScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		ti, tj := scores[i].TotalScore(), scores[j].TotalScore()
		if ti != tj {
			return ti > tj
		}
		return scores[i].TableName < scores[j].TableName
	})
}
