// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kg

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// SnapshotSchemaVersion is the version of the snapshot serialization schema.
// Increment when the format changes in a breaking way.
const SnapshotSchemaVersion = "1.0"

// Snapshot is the JSON-serializable knowledge-graph snapshot produced by the
// external profiling pipeline and loaded once at service start.
//
// Description:
//
//	Tables are kept sorted by name for deterministic output, enabling
//	reliable diffing and content hashing. The snapshot is immutable for the
//	lifetime of the process; the engine never writes back to it.
//
// Thread Safety: Immutable after Load; safe for concurrent reads.
type Snapshot struct {
	// SchemaVersion identifies the serialization format version.
	SchemaVersion string `json:"schema_version"`

	// Source names the database the snapshot was profiled from.
	Source string `json:"source,omitempty"`

	// BuiltAtMilli is the Unix timestamp in milliseconds when the external
	// pipeline froze the snapshot.
	BuiltAtMilli int64 `json:"built_at_milli,omitempty"`

	// Tables contains all table metadata, sorted by name.
	Tables []*TableMetadata `json:"tables"`
}

// Validate checks structural integrity: schema version, duplicate or unnamed
// tables, and FK edges pointing at tables absent from the snapshot.
//
// Outputs:
//
//	error - The first integrity violation found, or nil.
func (s *Snapshot) Validate() error {
	if s.SchemaVersion != SnapshotSchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %q (want %q)",
			s.SchemaVersion, SnapshotSchemaVersion)
	}
	names := make(map[string]struct{}, len(s.Tables))
	for _, t := range s.Tables {
		if t.Name == "" {
			return fmt.Errorf("snapshot contains a table with no name")
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("duplicate table %q in snapshot", t.Name)
		}
		names[t.Name] = struct{}{}
	}
	for _, t := range s.Tables {
		for _, ref := range t.References {
			if _, ok := names[ref]; !ok {
				return fmt.Errorf("table %q references unknown table %q", t.Name, ref)
			}
		}
		for _, ref := range t.ReferencedBy {
			if _, ok := names[ref]; !ok {
				return fmt.Errorf("table %q referenced by unknown table %q", t.Name, ref)
			}
		}
	}
	return nil
}

// normalize sorts tables and their edge lists and backfills centrality for
// snapshots produced before the pipeline precomputed it.
func (s *Snapshot) normalize() {
	sort.Slice(s.Tables, func(i, j int) bool {
		return s.Tables[i].Name < s.Tables[j].Name
	})
	for _, t := range s.Tables {
		sort.Strings(t.References)
		sort.Strings(t.ReferencedBy)
		if t.ColumnCount == 0 {
			t.ColumnCount = len(t.Columns)
		}
	}
	s.backfillCentrality()
}

// backfillCentrality derives degree and normalized centrality from the FK
// edge lists for any table missing them. Normalized centrality is degree
// over (catalog size − 1), clamped to 1.
func (s *Snapshot) backfillCentrality() {
	total := len(s.Tables)
	for _, t := range s.Tables {
		if t.DegreeCentrality == 0 {
			t.DegreeCentrality = len(t.References) + len(t.ReferencedBy)
		}
		if t.NormalizedCentrality == 0 && total > 1 {
			c := float64(t.DegreeCentrality) / float64(total-1)
			if c > 1 {
				c = 1
			}
			t.NormalizedCentrality = c
		}
	}
}

// Hash returns the deterministic content hash of the snapshot.
//
// Description:
//
//	SHA256 over the canonical JSON encoding (tables sorted by name). Used as
//	the embedding-cache key: any change to the catalog produces a different
//	hash and silently invalidates persisted vectors.
func (s *Snapshot) Hash() string {
	data, err := json.Marshal(s)
	if err != nil {
		// Snapshot is plain data; Marshal cannot fail on it.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Marshal encodes the snapshot as indented, deterministic JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	s.normalize()
	return json.MarshalIndent(s, "", "  ")
}

// ParseSnapshot decodes, normalizes, and validates a snapshot from JSON bytes.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSnapshot reads a snapshot file from disk.
//
// Description:
//
//	Setup-failure semantics: any error here (missing file, bad JSON, failed
//	validation) is fatal at initialization. There is no catalog to score
//	without a snapshot, so nothing is recovered mid-query.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %q: %w", path, err)
	}
	s, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", path, err)
	}
	return s, nil
}
