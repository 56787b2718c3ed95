// Package hashstore records per-module content hashes of build outputs and
// carries hashes of untouched artifacts forward between runs.
package hashstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntryKind tags the shape of a hash table value.
type EntryKind string

const (
	// KindHash is the content hash of a single artifact.
	KindHash EntryKind = "hash"

	// KindRollup is a hash computed over other hashes or a whole document set.
	KindRollup EntryKind = "rollup"
)

// Entry is a normalized hash table value. Older tables stored plain strings
// or objects; both are converted here so merge logic never inspects raw JSON.
type Entry struct {
	Kind  EntryKind
	Value string
}

// Hash returns an artifact hash entry.
func Hash(v string) Entry { return Entry{Kind: KindHash, Value: v} }

// RollupEntry returns a rollup entry.
func RollupEntry(v string) Entry { return Entry{Kind: KindRollup, Value: v} }

// MarshalJSON writes hash entries as strings and rollups as {"rollup": value}.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Kind == KindRollup {
		return json.Marshal(map[string]string{"rollup": e.Value})
	}
	return json.Marshal(e.Value)
}

// UnmarshalJSON accepts "value", {"rollup": value} and {"hash": value}.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Hash(s)
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("hash entry must be a string or object: %w", err)
	}
	if v, ok := obj["rollup"]; ok {
		*e = RollupEntry(v)
		return nil
	}
	if v, ok := obj["hash"]; ok {
		*e = Hash(v)
		return nil
	}
	return fmt.Errorf("hash entry object has neither %q nor %q", "rollup", "hash")
}

// Table maps an artifact path relative to the module output directory to its entry.
type Table map[string]Entry

// Clone returns a shallow copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Record is everything persisted for one module.
type Record struct {
	Hashes      Table
	SourcesHash string
}

// OutputMapping maps a source path to the physical outputs compiled from it.
// A single source may fan out to several outputs (plain and minified forms).
type OutputMapping map[string][]string
