package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"newsdigest/internal/domain"
	"newsdigest/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

// Store persists sources, audited content, digests, and metrics in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ ports.Repository = (*Store)(nil)

// Open initializes or connects to the digest database and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ActiveSources returns every source that has not been deactivated.
func (s *Store) ActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := sq.Select("id", "kind", "name", "address", "active", "last_success_at", "created_at").
		From("sources").
		Where(sq.Eq{"active": 1}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src         domain.Source
			active      int
			lastSuccess sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&src.ID, &src.Kind, &src.Name, &src.Address, &active, &lastSuccess, &createdAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Active = active != 0
		if lastSuccess.Valid {
			src.LastSuccessAt = parseTime(lastSuccess.String)
		}
		src.CreatedAt = parseTime(createdAt)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return sources, nil
}

// AddSource inserts a registry entry and returns its id.
func (s *Store) AddSource(ctx context.Context, src domain.Source) (int64, error) {
	query, args, err := sq.Insert("sources").
		Columns("kind", "name", "address", "active", "created_at").
		Values(string(src.Kind), src.Name, src.Address, boolToInt(src.Active), formatTime(time.Now().UTC())).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build source insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// DeactivateSource marks a source inactive; entries are never deleted.
func (s *Store) DeactivateSource(ctx context.Context, id int64) error {
	query, args, err := sq.Update("sources").
		Set("active", 0).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build source update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deactivate source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastSuccess records the latest successful fetch timestamp.
func (s *Store) UpdateSourceLastSuccess(ctx context.Context, id int64, at time.Time) error {
	query, args, err := sq.Update("sources").
		Set("last_success_at", formatTime(at)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build source update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source %d: %w", id, err)
	}
	return nil
}

// SeenContentIDs returns every content id audited since the given time.
func (s *Store) SeenContentIDs(ctx context.Context, since time.Time) (map[string]bool, error) {
	query, args, err := sq.Select("content_id").
		From("content").
		Where(sq.GtOrEq{"processed_at": formatTime(since)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan content id: %w", err)
		}
		seen[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen ids: %w", err)
	}

	return seen, nil
}

// RecordItemAudit upserts one item's audit row, including unscored items.
func (s *Store) RecordItemAudit(ctx context.Context, item domain.ScoredItem) error {
	query, args, err := sq.Insert("content").
		Columns("content_id", "source_names", "title", "body", "url",
			"published_at", "processed_at", "importance_score", "category",
			"explanation", "scored", "is_ad").
		Values(item.ContentID,
			strings.Join(item.SourceNames, ","),
			item.Title,
			item.Body,
			item.URL,
			formatTime(item.PublishedAt),
			formatTime(time.Now().UTC()),
			item.Score,
			string(item.Category),
			item.Explanation,
			boolToInt(item.Scored),
			boolToInt(item.Ad)).
		Suffix(`ON CONFLICT(content_id) DO UPDATE SET
            importance_score = excluded.importance_score,
            category = excluded.category,
            explanation = excluded.explanation,
            scored = excluded.scored,
            processed_at = excluded.processed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert audit row %s: %w", item.ContentID, err)
	}
	return nil
}

// SaveDigest stores the finished digest as a single row; readers see
// either the whole artifact or nothing.
func (s *Store) SaveDigest(ctx context.Context, digest *domain.Digest) (int64, error) {
	payload, err := json.Marshal(digest)
	if err != nil {
		return 0, fmt.Errorf("marshal digest: %w", err)
	}

	query, args, err := sq.Insert("digests").
		Columns("requester_id", "generated_at", "elapsed_ms", "payload").
		Values(digest.RequesterID, formatTime(digest.GeneratedAt), digest.Elapsed.Milliseconds(), string(payload)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build digest insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert digest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// LatestDigest returns the most recent completed digest for a requester,
// or nil when none exists.
func (s *Store) LatestDigest(ctx context.Context, requesterID int64) (*domain.Digest, error) {
	query, args, err := sq.Select("id", "payload").
		From("digests").
		Where(sq.Eq{"requester_id": requesterID}).
		OrderBy("generated_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build digest query: %w", err)
	}

	var (
		id      int64
		payload string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest digest: %w", err)
	}

	var digest domain.Digest
	if err := json.Unmarshal([]byte(payload), &digest); err != nil {
		return nil, fmt.Errorf("unmarshal digest %d: %w", id, err)
	}
	digest.ID = id

	return &digest, nil
}

// SaveMetrics stores one cycle's processing metrics.
func (s *Store) SaveMetrics(ctx context.Context, m domain.Metrics) error {
	query, args, err := sq.Insert("metrics").
		Columns("digest_id", "processing_ms", "sources_count", "raw_count",
			"processed_count", "top_count", "errors_count", "created_at").
		Values(m.DigestID, m.ProcessingTime.Milliseconds(), m.SourcesCount,
			m.RawCount, m.ProcessedCount, m.TopCount, m.ErrorsCount,
			formatTime(m.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build metrics insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}
	return nil
}

// CleanupOldContent prunes audit rows older than the retention period and
// reports how many were removed.
func (s *Store) CleanupOldContent(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().UTC().Add(-olderThan))

	query, args, err := sq.Delete("content").
		Where(sq.Lt{"processed_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old content: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
