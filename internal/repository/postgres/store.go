// Package postgres provides a PostgreSQL document store.
// Documents are stored as JSONB and queried with the JSON operators; the
// active-uniqueness invariant is backed by a partial unique index.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository"
)

// uniqueViolationCode is the PostgreSQL error code for duplicate keys.
const uniqueViolationCode = "23505"

// Config holds PostgreSQL connection settings.
type Config struct {
	DSN             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Store implements repository.Store backed by PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates a connection pool and prepares one table per collection.
func New(ctx context.Context, cfg Config, logger zerolog.Logger, cols ...repository.Collection) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		pool:   pool,
		logger: logger.With().Str("store", "postgres").Logger(),
	}

	for _, col := range cols {
		if err := s.ensureCollection(ctx, col); err != nil {
			pool.Close()
			return nil, err
		}
	}

	s.logger.Info().Int("collections", len(cols)).Msg("connected to PostgreSQL")
	return s, nil
}

// ensureCollection creates the collection table and its indexes.
// Collection and field names come from compiled-in definitions, never from
// request input.
func (s *Store) ensureCollection(ctx context.Context, col repository.Collection) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`, col.Name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (is_active)`,
			"idx_"+col.Name+"_active", col.Name),
	}
	if col.UniqueField != "" {
		// Partial index: only active records participate in uniqueness.
		ddl = append(ddl, fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q ((doc->>'%s')) WHERE is_active`,
			"idx_"+col.Name+"_unique_active", col.Name, col.UniqueField))
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare collection %s: %w", col.Name, err)
		}
	}
	return nil
}

// Insert persists a new document.
func (s *Store) Insert(ctx context.Context, col repository.Collection, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %q (id, doc, is_active) VALUES ($1, $2, $3)`, col.Name)
	if _, err := s.pool.Exec(ctx, query, doc.ID(), raw, doc.IsActive()); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, col.UniqueField)
		}
		return fmt.Errorf("failed to insert into %s: %w", col.Name, err)
	}
	return nil
}

// Get retrieves a document by id regardless of its active flag.
func (s *Store) Get(ctx context.Context, col repository.Collection, id string) (domain.Document, error) {
	query := fmt.Sprintf(`SELECT doc FROM %q WHERE id = $1`, col.Name)

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from %s: %w", col.Name, err)
	}
	return decodeDocument(raw)
}

// FindOne retrieves the first document whose field equals value.
// Field values are compared through their JSON text representation, which
// matches how the partial unique index is declared.
func (s *Store) FindOne(ctx context.Context, col repository.Collection, field string, value any, activeOnly bool, excludeID string) (domain.Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT doc FROM %q WHERE doc->>'%s' = $1`, col.Name, field)
	args := []any{render(value)}
	if activeOnly {
		sb.WriteString(` AND is_active`)
	}
	if excludeID != "" {
		fmt.Fprintf(&sb, ` AND id != $%d`, len(args)+1)
		args = append(args, excludeID)
	}
	sb.WriteString(` LIMIT 1`)

	var raw []byte
	if err := s.pool.QueryRow(ctx, sb.String(), args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find in %s: %w", col.Name, err)
	}
	return decodeDocument(raw)
}

// Find returns a page of documents matching the query plus the total.
func (s *Store) Find(ctx context.Context, col repository.Collection, q repository.Query) (*repository.FindResult, error) {
	where, args := buildWhere(col, q)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %q%s`, col.Name, where)
	var total int64
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", col.Name, err)
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = int(total)
	}
	pageQuery := fmt.Sprintf(
		`SELECT doc FROM %q%s ORDER BY lower(doc->>'%s') %s, id ASC LIMIT $%d OFFSET $%d`,
		col.Name, where, col.SearchField, dir, len(args)+1, len(args)+2,
	)
	pageArgs := append(args, limit, q.Offset)

	rows, err := s.pool.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", col.Name, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", col.Name, err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", col.Name, err)
	}

	return &repository.FindResult{Docs: docs, Total: total}, nil
}

// Apply merges a partial update into the stored document inside a
// transaction. The row is locked for the read-merge-write.
func (s *Store) Apply(ctx context.Context, col repository.Collection, id string, set domain.Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	selectQuery := fmt.Sprintf(`SELECT doc FROM %q WHERE id = $1 FOR UPDATE`, col.Name)
	if err := tx.QueryRow(ctx, selectQuery, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to read %s for update: %w", col.Name, err)
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return err
	}
	doc.Merge(set)

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	updateQuery := fmt.Sprintf(`UPDATE %q SET doc = $1, is_active = $2 WHERE id = $3`, col.Name)
	if _, err := tx.Exec(ctx, updateQuery, merged, doc.IsActive(), id); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, col.UniqueField)
		}
		return fmt.Errorf("failed to update %s: %w", col.Name, err)
	}

	return tx.Commit(ctx)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	s.logger.Debug().Msg("postgres pool closed")
	return nil
}

// buildWhere assembles the WHERE clause shared by count and page queries.
func buildWhere(col repository.Collection, q repository.Query) (string, []any) {
	var conds []string
	var args []any
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		conds = append(conds, fmt.Sprintf("doc->>'%s' ILIKE $%d", col.SearchField, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// isUniqueViolation checks if an error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// render converts a field value to the text form doc->>'field' yields.
func render(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

func decodeDocument(raw []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
