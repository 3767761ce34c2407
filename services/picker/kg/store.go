// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kg

import (
	"errors"
	"sort"
)

// ErrTableNotFound is returned when a table named in a request is absent
// from the loaded snapshot.
var ErrTableNotFound = errors.New("table not found in snapshot")

// Store is the read API over a loaded snapshot.
//
// Description:
//
//	Indexes the snapshot's tables by name once at construction and serves
//	reads off the immutable structures. The relevance engine holds a Store
//	for the lifetime of a query batch; concurrent queries share one Store
//	with no locking.
//
// Thread Safety: Immutable after NewStore; safe for concurrent use.
type Store struct {
	snapshot *Snapshot
	byName   map[string]*TableMetadata
	names    []string
}

// NewStore indexes a validated snapshot for lookup.
func NewStore(snapshot *Snapshot) *Store {
	byName := make(map[string]*TableMetadata, len(snapshot.Tables))
	names := make([]string, 0, len(snapshot.Tables))
	for _, t := range snapshot.Tables {
		byName[t.Name] = t
		names = append(names, t.Name)
	}
	return &Store{snapshot: snapshot, byName: byName, names: names}
}

// Snapshot returns the underlying snapshot (for hashing and inspection).
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot
}

// ListTables returns all table names in sorted order. The returned slice is
// shared; callers must not mutate it.
func (s *Store) ListTables() []string {
	return s.names
}

// GetTable returns the metadata of one table.
//
// Outputs:
//
//	*TableMetadata - The table, or nil with ok=false when absent. A missing
//	table is a per-table miss the scorer skips, never a batch failure.
func (s *Store) GetTable(name string) (*TableMetadata, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// RelatedTables returns tables reachable from name over FK edges within
// depth hops, either direction, excluding name itself. Depth 1 is the
// direct-neighbor set the relationship booster uses.
func (s *Store) RelatedTables(name string, depth int) []string {
	if depth < 1 {
		return nil
	}
	start, ok := s.byName[name]
	if !ok {
		return nil
	}

	visited := map[string]struct{}{name: {}}
	frontier := start.RelatedTables()
	var related []string

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, n := range frontier {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			related = append(related, n)
			if t, ok := s.byName[n]; ok {
				next = append(next, t.RelatedTables()...)
			}
		}
		frontier = next
	}
	return related
}

// Relationships returns the FK edges touching name, both directions, with a
// LEFT join recommendation. Column pairing assumes the conventional shared
// key name; callers with richer schema info may refine it. Edges come out in
// sorted column order so responses are stable across runs.
func (s *Store) Relationships(name string) []Relationship {
	t, ok := s.byName[name]
	if !ok {
		return nil
	}

	var rels []Relationship
	for _, colName := range sortedColumnNames(t) {
		for _, target := range t.Columns[colName].ForeignKeyTargets {
			rels = append(rels, Relationship{
				FromTable:       name,
				ToTable:         target,
				FromColumn:      colName,
				ToColumn:        colName,
				Type:            "FOREIGN_KEY",
				Confidence:      1.0,
				RecommendedJoin: "LEFT",
			})
		}
	}
	for _, refName := range t.ReferencedBy {
		ref, ok := s.byName[refName]
		if !ok {
			continue
		}
		for _, colName := range sortedColumnNames(ref) {
			for _, target := range ref.Columns[colName].ForeignKeyTargets {
				if target != name {
					continue
				}
				rels = append(rels, Relationship{
					FromTable:       refName,
					ToTable:         name,
					FromColumn:      colName,
					ToColumn:        colName,
					Type:            "FOREIGN_KEY",
					Confidence:      1.0,
					RecommendedJoin: "LEFT",
				})
			}
		}
	}
	return rels
}

// sortedColumnNames returns a table's column names in sorted order.
func sortedColumnNames(t *TableMetadata) []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RelationshipsBetween returns the FK edges whose both endpoints are in the
// given table set. Used to report join structure over a selection.
func (s *Store) RelationshipsBetween(tables []string) []Relationship {
	inSet := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		inSet[t] = struct{}{}
	}

	seen := make(map[string]struct{})
	var rels []Relationship
	for _, name := range tables {
		for _, rel := range s.Relationships(name) {
			if _, ok := inSet[rel.FromTable]; !ok {
				continue
			}
			if _, ok := inSet[rel.ToTable]; !ok {
				continue
			}
			key := rel.FromTable + "\x00" + rel.FromColumn + "\x00" + rel.ToTable
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rels = append(rels, rel)
		}
	}
	return rels
}
