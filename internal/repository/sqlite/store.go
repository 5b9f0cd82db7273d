// Package sqlite provides a SQLite document store for embedded deployments.
// This package uses modernc.org/sqlite, a pure Go SQLite implementation that
// doesn't require CGO, making it ideal for cross-platform single-binary
// deployments. Documents are stored as JSON text and queried through the
// JSON1 functions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository"
)

// Config holds SQLite connection settings.
type Config struct {
	// Path is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	Path string

	// JournalMode sets the SQLite journal mode (WAL recommended).
	JournalMode string

	// BusyTimeout sets the busy timeout in milliseconds.
	BusyTimeout int

	// SynchronousMode sets the synchronous mode (NORMAL, FULL, OFF).
	SynchronousMode string
}

// DefaultConfig returns a default SQLite configuration.
func DefaultConfig(dbPath string) Config {
	return Config{
		Path:            dbPath,
		JournalMode:     "WAL",
		BusyTimeout:     5000,
		SynchronousMode: "NORMAL",
	}
}

// Store implements repository.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens the database and prepares one table per collection, including
// the partial unique index backing the active-uniqueness invariant.
func New(ctx context.Context, cfg Config, logger zerolog.Logger, cols ...repository.Collection) (*Store, error) {
	connStr := fmt.Sprintf(
		"%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)&_pragma=synchronous(%s)",
		cfg.Path, cfg.JournalMode, cfg.BusyTimeout, cfg.SynchronousMode,
	)

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		logger: logger.With().Str("store", "sqlite").Logger(),
	}

	for _, col := range cols {
		if err := s.ensureCollection(ctx, col); err != nil {
			db.Close()
			return nil, err
		}
	}

	s.logger.Info().Str("path", cfg.Path).Int("collections", len(cols)).Msg("sqlite store ready")
	return s, nil
}

// ensureCollection creates the collection table and its indexes.
// Collection and field names come from compiled-in definitions, never from
// request input.
func (s *Store) ensureCollection(ctx context.Context, col repository.Collection) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`, col.Name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (is_active)`,
			"idx_"+col.Name+"_active", col.Name),
	}
	if col.UniqueField != "" {
		// Partial index: soft-deleted records are excluded from uniqueness,
		// allowing re-registration under a value held by an inactive record.
		ddl = append(ddl, fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q (json_extract(doc, '$.%s')) WHERE is_active = 1`,
			"idx_"+col.Name+"_unique_active", col.Name, col.UniqueField))
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
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

	query := fmt.Sprintf(`INSERT INTO %q (id, doc, is_active) VALUES (?, ?, ?)`, col.Name)
	_, err = s.db.ExecContext(ctx, query, doc.ID(), string(raw), boolToInt(doc.IsActive()))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, col.UniqueField)
		}
		return fmt.Errorf("failed to insert into %s: %w", col.Name, err)
	}
	return nil
}

// Get retrieves a document by id regardless of its active flag.
func (s *Store) Get(ctx context.Context, col repository.Collection, id string) (domain.Document, error) {
	query := fmt.Sprintf(`SELECT doc FROM %q WHERE id = ?`, col.Name)

	var raw string
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from %s: %w", col.Name, err)
	}
	return decodeDocument(raw)
}

// FindOne retrieves the first document whose field equals value.
func (s *Store) FindOne(ctx context.Context, col repository.Collection, field string, value any, activeOnly bool, excludeID string) (domain.Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT doc FROM %q WHERE json_extract(doc, '$.%s') = ?`, col.Name, field)
	args := []any{value}
	if activeOnly {
		sb.WriteString(` AND is_active = 1`)
	}
	if excludeID != "" {
		sb.WriteString(` AND id != ?`)
		args = append(args, excludeID)
	}
	sb.WriteString(` LIMIT 1`)

	var raw string
	if err := s.db.QueryRowContext(ctx, sb.String(), args...).Scan(&raw); err != nil {
		if isNoRows(err) {
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
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", col.Name, err)
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	pageQuery := fmt.Sprintf(
		`SELECT doc FROM %q%s ORDER BY json_extract(doc, '$.%s') COLLATE NOCASE %s, id ASC LIMIT ? OFFSET ?`,
		col.Name, where, col.SearchField, dir,
	)
	pageArgs := append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", col.Name, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var raw string
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
// transaction, so the read-merge-write is atomic per document.
func (s *Store) Apply(ctx context.Context, col repository.Collection, id string, set domain.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	selectQuery := fmt.Sprintf(`SELECT doc FROM %q WHERE id = ?`, col.Name)
	if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&raw); err != nil {
		if isNoRows(err) {
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

	updateQuery := fmt.Sprintf(`UPDATE %q SET doc = ?, is_active = ? WHERE id = ?`, col.Name)
	if _, err := tx.ExecContext(ctx, updateQuery, string(merged), boolToInt(doc.IsActive()), id); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, col.UniqueField)
		}
		return fmt.Errorf("failed to update %s: %w", col.Name, err)
	}

	return tx.Commit()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Debug().Msg("closing sqlite store")
	return s.db.Close()
}

// buildWhere assembles the WHERE clause shared by count and page queries.
func buildWhere(col repository.Collection, q repository.Query) (string, []any) {
	var conds []string
	var args []any
	if q.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, boolToInt(*q.IsActive))
	}
	if q.Search != "" {
		conds = append(conds, fmt.Sprintf("lower(json_extract(doc, '$.%s')) LIKE ?", col.SearchField))
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodeDocument(raw string) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// boolToInt converts a boolean to an integer (SQLite has no native boolean).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
