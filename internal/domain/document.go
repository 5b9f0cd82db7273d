// Package domain contains the core business types for Versebook.
// Records are schemaless documents; every collection shares the same
// soft-delete bookkeeping fields on top of its resource-specific fields.
package domain

import (
	"encoding/json"
	"time"
)

// Metadata fields present on every record regardless of resource type.
const (
	FieldID         = "id"
	FieldIsActive   = "is_active"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
	FieldCreatedBy  = "created_by"
	FieldUpdatedBy  = "updated_by"
	FieldDeletedAt  = "deleted_at"
	FieldDeletedBy  = "deleted_by"
	FieldRestoredAt = "restored_at"
	FieldRestoredBy = "restored_by"
)

// Document is a single record in a collection.
// Values are restricted to what JSON can carry: after a round trip through
// any store backend, numbers are float64 and timestamps are RFC3339 strings.
type Document map[string]any

// ID returns the record identifier, or "" if unset.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// IsActive reports whether the record is live (not soft-deleted).
func (d Document) IsActive() bool {
	active, _ := d[FieldIsActive].(bool)
	return active
}

// String returns the named field as a string, or "" if absent or not a string.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Time parses the named field as an RFC3339 timestamp.
// Returns the zero time if the field is absent or malformed.
func (d Document) Time(field string) time.Time {
	s, ok := d[field].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a deep copy of the document via a JSON round trip.
// The copy has the same value types a store backend would hand back.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		// Documents originate from decoded JSON; marshaling cannot fail.
		panic(err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

// Merge applies a partial update following JSON merge-patch semantics:
// present fields overwrite, nil values remove the field, absent fields are
// left untouched.
func (d Document) Merge(set Document) {
	for k, v := range set {
		if v == nil {
			delete(d, k)
			continue
		}
		d[k] = v
	}
}

// Timestamp returns the current UTC time in the canonical record format.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
