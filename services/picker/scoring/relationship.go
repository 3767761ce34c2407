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
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// enhanceWithRelationships boosts candidates connected by FK edges to the
// top candidates, and rescues unscored junction tables.
//
// Description:
//
//	The top AnchorCount candidates act as anchors. Every table in the full
//	unfiltered score list is checked for one-hop FK proximity (either
//	direction) to each anchor:
//
//	  - Connected to >= 1 anchor and already a candidate: FK_WEIGHT ×
//	    connection count into FKBoost, with the anchors named in the
//	    reason.
//	  - Connected to >= RescueMinConnections anchors and NOT a candidate:
//	    a fresh candidate entry is synthesized ("rescue"). This recovers
//	    junction/bridge tables that legitimately join two relevant tables
//	    but carry no lexical signal of their own.
//
//	A table touching exactly one anchor is never rescued; a single edge is
//	ordinary FK adjacency, not evidence of a bridge.
func (e *Engine) enhanceWithRelationships(ctx context.Context, candidates, allScores []*TableScore) []*TableScore {
	_, span := engineTracer.Start(ctx, "scoring.Engine.enhanceWithRelationships")
	defer span.End()

	if len(candidates) < 2 {
		return candidates
	}
	w := e.weights

	anchorCount := w.AnchorCount
	if anchorCount > len(candidates) {
		anchorCount = len(candidates)
	}
	anchors := make([]string, anchorCount)
	anchorSet := make(map[string]struct{}, anchorCount)
	for i := 0; i < anchorCount; i++ {
		anchors[i] = candidates[i].TableName
		anchorSet[anchors[i]] = struct{}{}
	}

	// One-hop neighborhood per anchor.
	neighbors := make(map[string]map[string]struct{}, anchorCount)
	for _, anchor := range anchors {
		related := e.store.RelatedTables(anchor, 1)
		set := make(map[string]struct{}, len(related))
		for _, r := range related {
			set[r] = struct{}{}
		}
		neighbors[anchor] = set
	}

	candidateByName := make(map[string]*TableScore, len(candidates))
	for _, c := range candidates {
		candidateByName[c.TableName] = c
	}

	rescued := 0
	for _, ts := range allScores {
		if _, isAnchor := anchorSet[ts.TableName]; isAnchor {
			continue
		}

		var connected []string
		for _, anchor := range anchors {
			if _, ok := neighbors[anchor][ts.TableName]; ok {
				connected = append(connected, anchor)
			}
		}
		if len(connected) == 0 {
			continue
		}

		boost := w.FKRelationship * float64(len(connected))
		var reason string
		if len(connected) == 1 {
			reason = fmt.Sprintf("has FK relationship with '%s'", connected[0])
		} else {
			reason = fmt.Sprintf("connects %d top candidates: %s",
				len(connected), strings.Join(connected, ", "))
		}

		if existing, ok := candidateByName[ts.TableName]; ok {
			existing.Add(Award{
				Points:         boost,
				Reason:         reason,
				Kind:           SignalFKRelationship,
				IsRelationship: true,
			})
			continue
		}

		if len(connected) >= w.RescueMinConnections {
			rescue := NewTableScore(ts.TableName)
			rescue.Add(Award{
				Points:         boost,
				Reason:         "[rescued] " + reason,
				Kind:           SignalFKRelationship,
				IsRelationship: true,
			})
			candidates = append(candidates, rescue)
			candidateByName[ts.TableName] = rescue
			rescued++
		}
	}

	if rescued > 0 {
		rescuedTablesTotal.Add(float64(rescued))
	}
	span.SetAttributes(
		attribute.Int("anchors", anchorCount),
		attribute.Int("rescued", rescued),
	)

	sortByScore(candidates)
	return candidates
}
