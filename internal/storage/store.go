// Package storage is the shared article store. It speaks PostgreSQL in
// production and SQLite for single-node deployments and tests; both dialects
// share the same squirrel-built queries.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/suhufapp/suhuf/internal/news"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	articlesTable = "news_articles"
)

// ErrDuplicate means the canonical URL is already stored.
var ErrDuplicate = errors.New("article already exists")

var articleColumns = []string{
	"id", "title", "description", "content", "source_url", "image_url",
	"published_at", "source_name", "category", "language", "author",
	"virality_description", "created_at",
}

type Store struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// Open connects to the store and creates the schema if needed. It does not
// retry; callers wrap it when the database may still be starting.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	var format sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		format = sq.Dollar
	case DriverSQLite:
		format = sq.Question
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer, and :memory: databases are per connection
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver, sb: sq.StatementBuilder.PlaceholderFormat(format)}

	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := postgresSchema
	if s.driver == DriverSQLite {
		schema = sqliteSchema
	}
	// SQLite's driver runs one statement per Exec call.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ExistsByURL reports whether an article with this canonical URL is stored.
func (s *Store) ExistsByURL(ctx context.Context, url string) (bool, error) {
	query, args, err := s.sb.Select("1").From(articlesTable).
		Where(sq.Eq{"source_url": url}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check url: %w", err)
	}
	return true, nil
}

// Insert stores a new article. It returns ErrDuplicate when another run
// already stored the URL; the unique constraint is the only arbiter.
func (s *Store) Insert(ctx context.Context, a news.Article) error {
	query, args, err := s.sb.Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			a.ID, a.Title, a.Summary, a.Content, a.URL, a.ImageURL,
			dbTime(a.PublishedAt), a.SourceName, a.Category, a.Language, a.Author,
			nullString(a.Virality), dbTime(a.CreatedAt),
		).
		Suffix("ON CONFLICT (source_url) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrDuplicate
	case isUniqueViolation(err):
		// id collision or a racing insert on a driver without ON CONFLICT
		return ErrDuplicate
	case err != nil:
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// RecentTitles returns up to limit titles for the scope, newest first.
func (s *Store) RecentTitles(ctx context.Context, language, category string, limit int) ([]string, error) {
	qb := s.sb.Select("title").From(articlesTable).
		Where(sq.Eq{"language": language}).
		OrderBy("published_at DESC", "created_at DESC").
		Limit(uint64(limit))
	if category = news.NormalizeCategory(category); category != news.CategoryAll {
		qb = qb.Where(sq.Eq{"category": category})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Query selects articles for the reader. Before and BeforeID are the
// (published_at, id) of the last row of the previous page; rows sharing
// that publish time are still returned when BeforeID is set.
type Query struct {
	Language string
	Category string
	Limit    int
	Before   time.Time
	BeforeID string
}

// ListArticles returns articles ordered by publish time, newest first.
func (s *Store) ListArticles(ctx context.Context, q Query) ([]news.Article, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	qb := s.sb.Select(articleColumns...).From(articlesTable).
		Where(sq.Eq{"language": q.Language}).
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(limit))
	if category := news.NormalizeCategory(q.Category); category != news.CategoryAll {
		qb = qb.Where(sq.Eq{"category": category})
	}
	switch {
	case q.Before.IsZero():
	case q.BeforeID == "":
		qb = qb.Where(sq.Lt{"published_at": dbTime(q.Before)})
	default:
		before := dbTime(q.Before)
		qb = qb.Where(sq.Or{
			sq.Lt{"published_at": before},
			sq.And{sq.Eq{"published_at": before}, sq.Lt{"id": q.BeforeID}},
		})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []news.Article{}
	for rows.Next() {
		var (
			a        news.Article
			virality sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Summary, &a.Content, &a.URL, &a.ImageURL,
			&a.PublishedAt, &a.SourceName, &a.Category, &a.Language, &a.Author,
			&virality, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if virality.Valid {
			v := virality.String
			a.Virality = &v
		}
		a.PublishedAt = a.PublishedAt.UTC()
		a.CreatedAt = a.CreatedAt.UTC()
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetStats counts stored articles per language.
func (s *Store) GetStats(ctx context.Context) (map[string]int, error) {
	query, args, err := s.sb.Select("language", "COUNT(*)").From(articlesTable).
		GroupBy("language").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{"total": 0}
	for rows.Next() {
		var (
			lang  string
			count int
		)
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, err
		}
		stats[lang] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dbTime normalizes to UTC with microsecond precision, which both dialects
// round-trip exactly.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
