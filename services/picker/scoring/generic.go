// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"fmt"
)

// isGenericQuery classifies queries carrying no specific lexical ask.
//
// Description:
//
//	Generic iff all three hold: no table's base score reaches the generic
//	threshold, entity extraction yields nothing, and every extracted term
//	belongs to the stopword/vague union. "Show me data" is generic;
//	"student grades" is not (entity "student"), and neither is any query
//	with one strong lexical match.
func (e *Engine) isGenericQuery(scores []*TableScore, entities, terms []string) bool {
	for _, ts := range scores {
		if ts.BaseScore >= e.weights.GenericQueryThreshold {
			return false
		}
	}
	if len(entities) > 0 {
		return false
	}
	for _, term := range terms {
		if !e.isGenericTerm(term) {
			return false
		}
	}
	return true
}

// applyCentralityBoost adds centrality-scaled points to every table with
// positive normalized centrality.
//
// Description:
//
//	For generic queries structural importance is the relevance signal, so
//	the points go into BaseScore, not FKBoost. maxBoost is the full cap for
//	fully generic queries and the smaller mixed-query cap otherwise; the
//	smaller cap keeps centrality from ever outranking a genuine specific
//	match. The caller re-sorts.
func (e *Engine) applyCentralityBoost(scores []*TableScore, maxBoost float64) {
	for _, ts := range scores {
		meta, ok := e.store.GetTable(ts.TableName)
		if !ok {
			continue
		}
		centrality := meta.NormalizedCentrality
		if centrality <= 0 {
			continue
		}

		label := "central table"
		if meta.IsHubTable {
			label = "hub table"
		}
		ts.Add(Award{
			Points: centrality * maxBoost,
			Reason: fmt.Sprintf("%s (centrality: %.2f, %d incoming FKs)",
				label, centrality, len(meta.ReferencedBy)),
			Kind: SignalCentrality,
		})
	}
}
