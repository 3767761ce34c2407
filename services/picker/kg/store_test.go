// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kg

import (
	"sort"
	"testing"
)

// makeChainStore builds a → b → c → d over FK edges, plus an isolated table.
func makeChainStore() *Store {
	s := &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Tables: []*TableMetadata{
			{Name: "a", References: []string{"b"},
				Columns: map[string]*ColumnMetadata{
					"b_id": {Name: "b_id", IsForeignKey: true, ForeignKeyTargets: []string{"b"}},
				}},
			{Name: "b", References: []string{"c"}, ReferencedBy: []string{"a"},
				Columns: map[string]*ColumnMetadata{
					"c_id": {Name: "c_id", IsForeignKey: true, ForeignKeyTargets: []string{"c"}},
				}},
			{Name: "c", References: []string{"d"}, ReferencedBy: []string{"b"},
				Columns: map[string]*ColumnMetadata{
					"d_id": {Name: "d_id", IsForeignKey: true, ForeignKeyTargets: []string{"d"}},
				}},
			{Name: "d", ReferencedBy: []string{"c"}},
			{Name: "island"},
		},
	}
	s.normalize()
	return NewStore(s)
}

func TestStore_ListTables_Sorted(t *testing.T) {
	store := makeChainStore()

	names := store.ListTables()
	if !sort.StringsAreSorted(names) {
		t.Errorf("ListTables not sorted: %v", names)
	}
	if len(names) != 5 {
		t.Errorf("got %d tables, want 5", len(names))
	}
}

func TestStore_GetTable(t *testing.T) {
	store := makeChainStore()

	if _, ok := store.GetTable("b"); !ok {
		t.Error("known table not found")
	}
	if _, ok := store.GetTable("nope"); ok {
		t.Error("unknown table reported as found")
	}
}

func TestStore_RelatedTables_DepthOne(t *testing.T) {
	store := makeChainStore()

	got := store.RelatedTables("b", 1)
	sort.Strings(got)
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("RelatedTables(b, 1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RelatedTables(b, 1) = %v, want %v", got, want)
		}
	}
}

func TestStore_RelatedTables_DepthTwo(t *testing.T) {
	store := makeChainStore()

	got := store.RelatedTables("a", 2)
	sort.Strings(got)
	// One hop: b. Two hops: c. Never a itself, never d (three hops).
	want := []string{"b", "c"}
	if len(got) != len(want) {
		t.Fatalf("RelatedTables(a, 2) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RelatedTables(a, 2) = %v, want %v", got, want)
		}
	}
}

func TestStore_RelatedTables_Isolated(t *testing.T) {
	store := makeChainStore()

	if got := store.RelatedTables("island", 3); len(got) != 0 {
		t.Errorf("isolated table has neighbors: %v", got)
	}
	if got := store.RelatedTables("missing", 1); got != nil {
		t.Errorf("unknown table has neighbors: %v", got)
	}
}

func TestStore_Relationships_BothDirections(t *testing.T) {
	store := makeChainStore()

	rels := store.Relationships("b")
	if len(rels) != 2 {
		t.Fatalf("got %d relationships for b, want 2 (outgoing to c, incoming from a)", len(rels))
	}

	var outgoing, incoming bool
	for _, r := range rels {
		if r.FromTable == "b" && r.ToTable == "c" && r.FromColumn == "c_id" {
			outgoing = true
		}
		if r.FromTable == "a" && r.ToTable == "b" && r.FromColumn == "b_id" {
			incoming = true
		}
		if r.Type != "FOREIGN_KEY" || r.Confidence != 1.0 || r.RecommendedJoin != "LEFT" {
			t.Errorf("unexpected edge attributes: %+v", r)
		}
	}
	if !outgoing || !incoming {
		t.Errorf("directions missing (outgoing=%v incoming=%v): %+v", outgoing, incoming, rels)
	}
}

func TestStore_Relationships_DeterministicOrder(t *testing.T) {
	s := &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Tables: []*TableMetadata{
			{Name: "courses"},
			{Name: "grades", References: []string{"courses", "students", "terms"},
				Columns: map[string]*ColumnMetadata{
					"z_course_id":  {Name: "z_course_id", IsForeignKey: true, ForeignKeyTargets: []string{"courses"}},
					"a_student_id": {Name: "a_student_id", IsForeignKey: true, ForeignKeyTargets: []string{"students"}},
					"m_term_id":    {Name: "m_term_id", IsForeignKey: true, ForeignKeyTargets: []string{"terms"}},
				}},
			{Name: "students"},
			{Name: "terms"},
		},
	}
	s.normalize()
	store := NewStore(s)

	want := []string{"a_student_id", "m_term_id", "z_course_id"}
	for run := 0; run < 20; run++ {
		rels := store.Relationships("grades")
		if len(rels) != len(want) {
			t.Fatalf("run %d: got %d relationships, want %d", run, len(rels), len(want))
		}
		for i, rel := range rels {
			if rel.FromColumn != want[i] {
				t.Fatalf("run %d: edge %d from column %q, want %q", run, i, rel.FromColumn, want[i])
			}
		}
	}
}

func TestStore_RelationshipsBetween(t *testing.T) {
	store := makeChainStore()

	rels := store.RelationshipsBetween([]string{"a", "b", "d"})

	// Only a → b has both endpoints in the set; b → c and c → d leave it.
	if len(rels) != 1 {
		t.Fatalf("got %d relationships, want 1: %+v", len(rels), rels)
	}
	if rels[0].FromTable != "a" || rels[0].ToTable != "b" {
		t.Errorf("edge = %s → %s, want a → b", rels[0].FromTable, rels[0].ToTable)
	}
}

func TestStore_RelationshipsBetween_Deduplicates(t *testing.T) {
	store := makeChainStore()

	// a → b surfaces from both endpoints; the result carries it once.
	rels := store.RelationshipsBetween([]string{"a", "b"})
	if len(rels) != 1 {
		t.Errorf("got %d relationships, want 1 deduplicated edge", len(rels))
	}
}

func TestTableMetadata_RelatedTables_Dedupes(t *testing.T) {
	meta := &TableMetadata{
		Name:         "orders",
		References:   []string{"customers", "products"},
		ReferencedBy: []string{"refunds", "customers"},
	}

	got := meta.RelatedTables()
	if len(got) != 3 {
		t.Errorf("RelatedTables = %v, want 3 deduplicated entries", got)
	}
	seen := map[string]int{}
	for _, n := range got {
		seen[n]++
	}
	if seen["customers"] != 1 {
		t.Errorf("customers appears %d times, want 1", seen["customers"])
	}
}
