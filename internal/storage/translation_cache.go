package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const translationTable = "translation_cache"

// GetTranslation returns a cached translation and bumps its use counter.
func (s *Store) GetTranslation(ctx context.Context, contentHash string) (string, bool, error) {
	query, args, err := s.sb.Select("translation").From(translationTable).
		Where(sq.Eq{"content_hash": contentHash}).ToSql()
	if err != nil {
		return "", false, err
	}

	var text string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get translation: %w", err)
	}

	update, uargs, err := s.sb.Update(translationTable).
		Set("last_used_at", dbTime(time.Now())).
		Set("use_count", sq.Expr("use_count + 1")).
		Where(sq.Eq{"content_hash": contentHash}).ToSql()
	if err == nil {
		// usage stats are advisory
		_, _ = s.db.ExecContext(ctx, update, uargs...)
	}
	return text, true, nil
}

// SetTranslation stores a translation; an existing entry is replaced.
func (s *Store) SetTranslation(ctx context.Context, contentHash, targetLanguage, translation, provider string) error {
	now := dbTime(time.Now())
	query, args, err := s.sb.Insert(translationTable).
		Columns("content_hash", "target_language", "translation", "provider", "created_at", "last_used_at", "use_count").
		Values(contentHash, targetLanguage, translation, provider, now, now, 1).
		Suffix("ON CONFLICT (content_hash) DO UPDATE SET translation = excluded.translation, provider = excluded.provider, last_used_at = excluded.last_used_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set translation: %w", err)
	}
	return nil
}
