package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/sanctum/internal/apperr"
)

const driverName = "sqlite3_sanctum"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	is_pinned    INTEGER NOT NULL DEFAULT 0,
	created_by   TEXT NOT NULL DEFAULT '',
	created_date INTEGER NOT NULL,
	updated_date INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_date);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(created_by);
`

var documentColumns = []string{"id", "title", "content", "is_pinned", "created_by", "created_date", "updated_date"}

var patterns sync.Map // pattern string -> *regexp.Regexp

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch backs the SQL "X REGEXP Y" operator, which SQLite calls as regexp(Y, X).
func regexpMatch(pattern, s string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if v, ok := patterns.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("storage: compile pattern %q: %w", pattern, err)
	}
	patterns.Store(pattern, re)
	return re, nil
}

// Option configures a SQLite provider.
type Option func(*SQLite)

// WithClock overrides the time source used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLite) { s.now = now }
}

// SQLite implements Provider on a single SQLite table.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

var _ Provider = (*SQLite)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, opts ...Option) (*SQLite, error) {
	conn, err := sql.Open(driverName, path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	s := &SQLite{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Create inserts a new document owned by the caller identity in ctx.
func (s *SQLite) Create(ctx context.Context, nd NewDocument) (Document, error) {
	now := s.now().UTC()
	doc := Document{
		ID:          uuid.NewString(),
		Title:       nd.Title,
		Content:     nd.Content,
		IsPinned:    nd.IsPinned,
		CreatedBy:   OwnerFrom(ctx),
		CreatedDate: now,
		UpdatedDate: now,
	}
	query, args, err := sq.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.Title, doc.Content, doc.IsPinned, doc.CreatedBy, now.UnixNano(), now.UnixNano()).
		ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("storage: build insert: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return Document{}, fmt.Errorf("storage: insert document: %w", err)
	}
	return doc, nil
}

// Get returns one document by id.
func (s *SQLite) Get(ctx context.Context, id string) (Document, error) {
	query, args, err := sq.Select(documentColumns...).From("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("storage: build select: %w", err)
	}
	doc, err := scanDocument(s.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("storage: get document: %w", err)
	}
	return doc, nil
}

// List returns every document, most recently updated first.
func (s *SQLite) List(ctx context.Context) ([]Document, error) {
	return s.Filter(ctx, Query{}, DefaultSort)
}

// Filter runs q with server-side ordering.
func (s *SQLite) Filter(ctx context.Context, q Query, sort Sort) ([]Document, error) {
	field, desc, err := sort.Parse()
	if err != nil {
		return nil, err
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}

	b := sq.Select(documentColumns...).From("documents").OrderBy(field+dir, "rowid"+dir)
	if q.CreatedBy != "" {
		b = b.Where(sq.Eq{"created_by": q.CreatedBy})
	}
	if q.Title != nil && q.Title.Pattern != "" {
		if _, err := compilePattern(q.Title.Pattern); err != nil {
			return nil, err
		}
		if q.Title.Negate {
			b = b.Where("NOT (title REGEXP ?)", q.Title.Pattern)
		} else {
			b = b.Where("title REGEXP ?", q.Title.Pattern)
		}
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage: build filter: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: filter: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Update applies p and bumps updated_date.
func (s *SQLite) Update(ctx context.Context, id string, p Patch) (Document, error) {
	b := sq.Update("documents").
		Set("updated_date", s.now().UTC().UnixNano()).
		Where(sq.Eq{"id": id})
	if p.Title != nil {
		b = b.Set("title", *p.Title)
	}
	if p.Content != nil {
		b = b.Set("content", *p.Content)
	}
	if p.IsPinned != nil {
		b = b.Set("is_pinned", *p.IsPinned)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return Document{}, fmt.Errorf("storage: build update: %w", err)
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Document{}, fmt.Errorf("storage: update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Document{}, fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Delete removes the document with id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("storage: build delete: %w", err)
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("storage: delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var (
		doc              Document
		created, updated int64
	)
	if err := r.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.IsPinned, &doc.CreatedBy, &created, &updated); err != nil {
		return Document{}, err
	}
	doc.CreatedDate = time.Unix(0, created).UTC()
	doc.UpdatedDate = time.Unix(0, updated).UTC()
	return doc, nil
}
