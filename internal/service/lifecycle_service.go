package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository"
	"github.com/versebook/versebook/internal/validate"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// metadataFields are managed exclusively by the lifecycle; clients cannot
// set them through create or update payloads.
var metadataFields = []string{
	domain.FieldID,
	domain.FieldIsActive,
	domain.FieldCreatedAt,
	domain.FieldUpdatedAt,
	domain.FieldCreatedBy,
	domain.FieldUpdatedBy,
	domain.FieldDeletedAt,
	domain.FieldDeletedBy,
	domain.FieldRestoredAt,
	domain.FieldRestoredBy,
	domain.FieldPasswordHash,
}

// LifecycleService implements the shared soft-delete lifecycle for one
// resource type. Records move between ACTIVE and INACTIVE only through
// Delete and Restore; nothing is ever physically removed.
type LifecycleService struct {
	store     repository.Store
	cache     repository.Cache
	def       Definition
	recordTTL time.Duration
	logger    zerolog.Logger
}

// NewLifecycleService creates a lifecycle service for a resource definition.
func NewLifecycleService(store repository.Store, cache repository.Cache, def Definition, recordTTL time.Duration, logger zerolog.Logger) *LifecycleService {
	return &LifecycleService{
		store:     store,
		cache:     cache,
		def:       def,
		recordTTL: recordTTL,
		logger:    logger.With().Str("service", def.Name).Logger(),
	}
}

// Definition returns the resource definition the service was built with.
func (s *LifecycleService) Definition() Definition {
	return s.def
}

// Create validates the payload, enforces active-uniqueness, stamps the
// bookkeeping fields, and persists a new active record.
func (s *LifecycleService) Create(ctx context.Context, payload domain.Document, actor domain.Actor) (domain.Document, error) {
	doc := stripMetadata(payload)
	if err := validate.Payload(doc, s.def.Rules, false); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, doc, ""); err != nil {
		return nil, err
	}

	now := domain.Timestamp()
	doc[domain.FieldID] = uuid.NewString()
	doc[domain.FieldIsActive] = true
	doc[domain.FieldCreatedAt] = now
	doc[domain.FieldUpdatedAt] = now
	doc[domain.FieldCreatedBy] = actor.ID
	doc[domain.FieldUpdatedBy] = actor.ID

	if err := s.store.Insert(ctx, s.def.Collection, doc); err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", doc.ID()).Str("actor", actor.ID).Msg("record created")
	return doc, nil
}

// Get retrieves a record by id regardless of its active flag.
// Reads go through the record cache.
func (s *LifecycleService) Get(ctx context.Context, id string) (domain.Document, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	if doc, ok := s.cacheGet(ctx, id); ok {
		return doc, nil
	}

	doc, err := s.store.Get(ctx, s.def.Collection, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, doc)
	return doc, nil
}

// GetActive retrieves a record by id and requires it to be active.
// Used by the public read paths, which must never expose inactive records.
func (s *LifecycleService) GetActive(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive() {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// ListInput carries filter, pagination, and sort options for List.
type ListInput struct {
	// Search is a case-insensitive substring match on the resource's
	// designated text field.
	Search string

	// IsActive overrides the implicit active-only filter when set.
	IsActive *bool

	// Page is 1-based; zero means the first page.
	Page int

	// Limit is the page size; zero means the default.
	Limit int

	// Sort is the designated text field, optionally prefixed with "-"
	// for descending order.
	Sort string

	// IncludeInactive disables the implicit active filter entirely
	// (admin tooling).
	IncludeInactive bool
}

// Pagination describes the shape of a listing result.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// ListOutput is a page of records plus pagination bookkeeping.
type ListOutput struct {
	Records    []domain.Document
	Pagination Pagination
}

// List returns a filtered, sorted page of records. The filter restricts to
// active records unless explicitly overridden.
func (s *LifecycleService) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	page := in.Page
	if page < 1 {
		page = defaultPage
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	isActive := in.IsActive
	if isActive == nil && !in.IncludeInactive {
		active := true
		isActive = &active
	}

	result, err := s.store.Find(ctx, s.def.Collection, repository.Query{
		Search:     in.Search,
		IsActive:   isActive,
		Descending: len(in.Sort) > 0 && in.Sort[0] == '-',
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Records: result.Docs,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: result.Total,
			Pages: (result.Total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

// Update validates and applies a partial merge. Fields absent from the
// payload are untouched; the active flag can only change via Delete/Restore.
func (s *LifecycleService) Update(ctx context.Context, id string, payload domain.Document, actor domain.Actor) (domain.Document, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	set := stripMetadata(payload)
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: no update data provided", domain.ErrBadRequest)
	}
	if err := validate.Payload(set, s.def.Rules, true); err != nil {
		return nil, err
	}
	if _, changed := set[s.def.Collection.UniqueField]; changed && s.def.Collection.UniqueField != "" {
		if err := s.checkUnique(ctx, set, id); err != nil {
			return nil, err
		}
	}

	set[domain.FieldUpdatedAt] = domain.Timestamp()
	set[domain.FieldUpdatedBy] = actor.ID

	if err := s.store.Apply(ctx, s.def.Collection, id, set); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, id)

	s.logger.Info().Str("id", id).Str("actor", actor.ID).Msg("record updated")
	return s.store.Get(ctx, s.def.Collection, id)
}

// Delete soft-deletes a record: the record stays in the collection with
// is_active=false and deletion bookkeeping. Deleting an already-inactive
// record succeeds; NotFound is reported only when the id is absent entirely.
func (s *LifecycleService) Delete(ctx context.Context, id string, actor domain.Actor) (domain.Document, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	now := domain.Timestamp()
	set := domain.Document{
		domain.FieldIsActive:  false,
		domain.FieldDeletedAt: now,
		domain.FieldDeletedBy: actor.ID,
		domain.FieldUpdatedAt: now,
		domain.FieldUpdatedBy: actor.ID,
	}
	if err := s.store.Apply(ctx, s.def.Collection, id, set); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, id)

	s.logger.Info().Str("id", id).Str("actor", actor.ID).Msg("record soft-deleted")
	return s.store.Get(ctx, s.def.Collection, id)
}

// Restore flips an inactive record back to active. It conflicts when the
// record is already active or when another active record holds the same
// unique value; the conflict check runs before the flip.
func (s *LifecycleService) Restore(ctx context.Context, id string, actor domain.Actor) (domain.Document, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	doc, err := s.store.Get(ctx, s.def.Collection, id)
	if err != nil {
		return nil, err
	}
	if doc.IsActive() {
		return nil, fmt.Errorf("%w: %s is already active", domain.ErrConflict, s.def.Name)
	}
	if err := s.checkUnique(ctx, doc, id); err != nil {
		return nil, err
	}

	now := domain.Timestamp()
	set := domain.Document{
		domain.FieldIsActive:   true,
		domain.FieldRestoredAt: now,
		domain.FieldRestoredBy: actor.ID,
		domain.FieldUpdatedAt:  now,
		domain.FieldUpdatedBy:  actor.ID,
		domain.FieldDeletedAt:  nil,
		domain.FieldDeletedBy:  nil,
	}
	if err := s.store.Apply(ctx, s.def.Collection, id, set); err != nil {
		return nil, err
	}
	s.cacheInvalidate(ctx, id)

	s.logger.Info().Str("id", id).Str("actor", actor.ID).Msg("record restored")
	return s.store.Get(ctx, s.def.Collection, id)
}

// checkUnique is the application-level half of the active-uniqueness
// enforcement; the store's partial unique index is the second half. The
// check-then-write is not atomic, so concurrent writers can race past this
// pre-check and are stopped by the index instead.
func (s *LifecycleService) checkUnique(ctx context.Context, doc domain.Document, excludeID string) error {
	field := s.def.Collection.UniqueField
	if field == "" {
		return nil
	}
	value, ok := doc[field]
	if !ok || value == nil {
		return nil
	}
	_, err := s.store.FindOne(ctx, s.def.Collection, field, value, true, excludeID)
	if err == nil {
		return fmt.Errorf("%w: %s with this %s already exists", domain.ErrConflict, s.def.Name, field)
	}
	if err == domain.ErrNotFound {
		return nil
	}
	return err
}

// recordCacheKey names the read-through cache entry for a record. Every
// writer against a collection must invalidate through the same key,
// whichever service performs the mutation.
func recordCacheKey(col repository.Collection, id string) string {
	return col.Name + ":" + id
}

func (s *LifecycleService) cacheKey(id string) string {
	return recordCacheKey(s.def.Collection, id)
}

func (s *LifecycleService) cacheGet(ctx context.Context, id string) (domain.Document, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, false
	}
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

func (s *LifecycleService) cacheSet(ctx context.Context, doc domain.Document) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(doc.ID()), raw, s.recordTTL); err != nil {
		s.logger.Debug().Err(err).Str("id", doc.ID()).Msg("cache set failed")
	}
}

func (s *LifecycleService) cacheInvalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Debug().Err(err).Str("id", id).Msg("cache invalidation failed")
	}
}

// checkID verifies the identifier is a well-formed UUID.
func checkID(id string) error {
	if id == "" {
		return domain.ErrInvalidID
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}

// stripMetadata returns a copy of the payload without lifecycle-managed
// fields.
func stripMetadata(payload domain.Document) domain.Document {
	doc := payload.Clone()
	if doc == nil {
		doc = domain.Document{}
	}
	for _, f := range metadataFields {
		delete(doc, f)
	}
	return doc
}
