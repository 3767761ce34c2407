// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

// filterByThreshold reduces the full sorted score list to a bounded
// candidate set.
//
// Description:
//
//	Four adaptive stages:
//
//	  1. Keep every table at or above the absolute threshold.
//	  2. Too many? Re-cut at max(absolute, topScore × relative).
//	  3. Fewer than two? Fall back to the top MinFallback tables, admitting
//	     only those with positive total score AND a base score at or above
//	     the weak-candidate floor; intent alignment alone is too weak a
//	     signal to stand on.
//	  4. Cap at MaxCandidates.
//
//	An empty result is a valid, meaningful outcome (the confidence
//	calculator turns it into a LOW verdict); it is never masked with a
//	forced non-empty set.
func (e *Engine) filterByThreshold(scores []*TableScore) []*TableScore {
	if len(scores) == 0 {
		return nil
	}
	w := e.weights

	candidates := keepAtOrAbove(scores, w.AbsoluteThreshold)

	if len(candidates) > w.MaxCandidates {
		cutoff := scores[0].TotalScore() * w.RelativeThreshold
		if cutoff < w.AbsoluteThreshold {
			cutoff = w.AbsoluteThreshold
		}
		candidates = keepAtOrAbove(scores, cutoff)
	}

	if len(candidates) < 2 {
		fallback := scores
		if len(fallback) > w.MinFallback {
			fallback = fallback[:w.MinFallback]
		}
		candidates = nil
		for _, ts := range fallback {
			if ts.TotalScore() > 0 && ts.BaseScore >= w.FallbackMinBaseScore {
				candidates = append(candidates, ts)
			}
		}
	}

	if len(candidates) > w.MaxCandidates {
		candidates = candidates[:w.MaxCandidates]
	}
	return candidates
}

// keepAtOrAbove returns the prefix-preserving subset of a sorted score list
// with total score >= cutoff.
func keepAtOrAbove(scores []*TableScore, cutoff float64) []*TableScore {
	var kept []*TableScore
	for _, ts := range scores {
		if ts.TotalScore() >= cutoff {
			kept = append(kept, ts)
		}
	}
	return kept
}
