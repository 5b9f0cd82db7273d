// Package repository defines the document store interface for Versebook.
// The interface abstracts persistence, allowing different backends
// (SQLite, PostgreSQL, in-memory for testing) while keeping the service
// layer clean.
package repository

import (
	"context"

	"github.com/versebook/versebook/internal/domain"
)

// Collection describes how a logical collection is stored and queried.
type Collection struct {
	// Name is the collection (table) name.
	Name string

	// UniqueField names the field covered by the active-uniqueness
	// invariant, or "" when the collection has no uniqueness constraint.
	// Backends enforce it with a partial unique index scoped to active
	// records; this is the second enforcement layer behind the service
	// pre-check.
	UniqueField string

	// SearchField names the designated text field used for substring
	// search and default ordering.
	SearchField string
}

// Query describes a filtered, sorted, paginated listing.
type Query struct {
	// Search is a case-insensitive substring match on the collection's
	// SearchField. Empty means no search filter.
	Search string

	// IsActive filters on the soft-delete flag. Nil means no filter.
	IsActive *bool

	// Descending orders by SearchField descending instead of ascending.
	Descending bool

	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// FindResult is a page of documents plus the total matching count.
type FindResult struct {
	// Docs is the requested page.
	Docs []domain.Document

	// Total is the number of records matching the query without pagination.
	Total int64
}

// Store defines document-level access to a set of collections.
// Single-document writes are atomic; nothing spans documents.
type Store interface {
	// Insert persists a new document. The document must carry an id.
	// Returns domain.ErrConflict when the active-uniqueness index rejects it.
	Insert(ctx context.Context, col Collection, doc domain.Document) error

	// Get retrieves a document by id regardless of its active flag.
	// Returns domain.ErrNotFound when the id is absent.
	Get(ctx context.Context, col Collection, id string) (domain.Document, error)

	// FindOne retrieves the first document whose field equals value.
	// With activeOnly set only active records are considered; excludeID
	// skips the record with that id (uniqueness re-check on update).
	// Returns domain.ErrNotFound when nothing matches.
	FindOne(ctx context.Context, col Collection, field string, value any, activeOnly bool, excludeID string) (domain.Document, error)

	// Find returns a page of documents matching the query plus the total.
	Find(ctx context.Context, col Collection, q Query) (*FindResult, error)

	// Apply merges a partial update into the document with the given id.
	// Merge follows JSON merge-patch semantics: nil removes a field.
	// Returns domain.ErrNotFound when the id is absent and
	// domain.ErrConflict when the merged document violates the
	// active-uniqueness index.
	Apply(ctx context.Context, col Collection, id string, set domain.Document) error

	// Ping checks the backend connection.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
