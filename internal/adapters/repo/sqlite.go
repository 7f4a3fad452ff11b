package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

// SQLite реализует репозитории поверх встроенной базы: локальный режим и тесты.
// Время хранится как unix-миллисекунды UTC, поэтому сравнения в SQL выполняются над числами.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.Store = (*SQLite)(nil)

// NewSQLite создаёт адаптер и применяет схему.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db, now: time.Now}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close закрывает соединение.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSource(row rowScanner) (domain.Source, error) {
	var (
		src                  domain.Source
		provider, raw        string
		lastFetched          sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&src.ID, &src.Name, &provider, &src.BaseURL, &raw, &src.Active, &src.AutoFetchEnabled,
		&src.Status, &lastFetched, &createdAt, &updatedAt); err != nil {
		return domain.Source{}, err
	}
	applyStoredConfig(&src, provider, []byte(raw))
	if lastFetched.Valid {
		t := fromMillis(lastFetched.Int64)
		src.LastFetchedAt = &t
	}
	src.CreatedAt = fromMillis(createdAt)
	src.UpdatedAt = fromMillis(updatedAt)
	return src, nil
}

// GetSource возвращает источник по идентификатору.
func (s *SQLite) GetSource(ctx context.Context, id string) (domain.Source, error) {
	start := time.Now()
	src, err := scanSQLiteSource(s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id))
	metrics.ObserveNetworkRequest("sqlite", "sources_get", "sources", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return src, err
}

// ListSources возвращает все источники.
func (s *SQLite) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.listSources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListSourcesByProvider возвращает источники провайдера.
func (s *SQLite) ListSourcesByProvider(ctx context.Context, provider domain.ProviderType) ([]domain.Source, error) {
	return s.listSources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE provider = ? ORDER BY id`, string(provider))
}

func (s *SQLite) listSources(ctx context.Context, query string, args ...any) ([]domain.Source, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	metrics.ObserveNetworkRequest("sqlite", "sources_list", "sources", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sources []domain.Source
	for rows.Next() {
		src, err := scanSQLiteSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// UpsertSource создаёт источник или обновляет его описание. Статус и last_fetched_at сохраняются.
func (s *SQLite) UpsertSource(ctx context.Context, src domain.Source) (domain.Source, error) {
	src, raw, err := prepareSource(src)
	if err != nil {
		return domain.Source{}, err
	}
	now := toMillis(s.now())
	start := time.Now()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sources (id, name, provider, base_url, config, active, auto_fetch_enabled, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, provider = excluded.provider, base_url = excluded.base_url,
    config = excluded.config, active = excluded.active, auto_fetch_enabled = excluded.auto_fetch_enabled,
    updated_at = excluded.updated_at
`, src.ID, src.Name, string(src.Provider), src.BaseURL, string(raw), src.Active, src.AutoFetchEnabled, src.Status, now, now)
	metrics.ObserveNetworkRequest("sqlite", "sources_upsert", "sources", start, err)
	if err != nil {
		return domain.Source{}, fmt.Errorf("upsert source %s: %w", src.ID, err)
	}
	return s.GetSource(ctx, src.ID)
}

// UpdateSourceStatus записывает статус и, если передано, время последнего успешного прогона.
func (s *SQLite) UpdateSourceStatus(ctx context.Context, id, status string, fetchedAt *time.Time) error {
	var fetched sql.NullInt64
	if fetchedAt != nil {
		fetched = sql.NullInt64{Int64: toMillis(*fetchedAt), Valid: true}
	}
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `
UPDATE sources SET status = ?, last_fetched_at = COALESCE(?, last_fetched_at), updated_at = ?
WHERE id = ?
`, status, fetched, toMillis(s.now()), id)
	metrics.ObserveNetworkRequest("sqlite", "sources_update_status", "sources", start, err)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return nil
}

// UpsertPost вставляет элемент, если пары (source, external_id) ещё нет.
func (s *SQLite) UpsertPost(ctx context.Context, post domain.Post) (domain.UpsertResult, error) {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("encode tags: %w", err)
	}
	now := toMillis(s.now())

	var id int64
	start := time.Now()
	err = s.db.QueryRowContext(ctx, `
INSERT INTO posts (source, external_id, title, url, author, summary, tags, posted_at, priority_score, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source, external_id) DO NOTHING
RETURNING id
`, post.Source, post.ExternalID, post.Title, post.URL, post.Author, post.Summary, string(rawTags), toMillis(post.PostedAt),
		post.PriorityScore, string(domain.PostStatusUnread), now, now).Scan(&id)
	metrics.ObserveNetworkRequest("sqlite", "posts_upsert", "posts", start, err)
	if err == nil {
		return domain.UpsertResult{ID: id, Created: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.UpsertResult{}, fmt.Errorf("insert post %s/%s: %w", post.Source, post.ExternalID, err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT id FROM posts WHERE source = ? AND external_id = ?`, post.Source, post.ExternalID).Scan(&id)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("lookup post %s/%s: %w", post.Source, post.ExternalID, err)
	}
	return domain.UpsertResult{ID: id, Created: false}, nil
}

// GetPost возвращает элемент по ключу.
func (s *SQLite) GetPost(ctx context.Context, source, externalID string) (domain.Post, error) {
	var (
		post                           domain.Post
		rawTags, status                string
		postedAt, createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, source, external_id, title, url, author, summary, tags, posted_at, priority_score, status, created_at, updated_at
FROM posts WHERE source = ? AND external_id = ?
`, source, externalID).Scan(&post.ID, &post.Source, &post.ExternalID, &post.Title, &post.URL, &post.Author, &post.Summary,
		&rawTags, &postedAt, &post.PriorityScore, &status, &createdAt, &updatedAt)
	if err != nil {
		return domain.Post{}, err
	}
	if err := json.Unmarshal([]byte(rawTags), &post.Tags); err != nil {
		return domain.Post{}, fmt.Errorf("decode tags: %w", err)
	}
	post.Status = domain.PostStatus(status)
	post.PostedAt = fromMillis(postedAt)
	post.CreatedAt = fromMillis(createdAt)
	post.UpdatedAt = fromMillis(updatedAt)
	return post, nil
}

// CountPosts возвращает количество элементов.
func (s *SQLite) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

// DeletePostsPostedBefore удаляет элементы с posted_at строго раньше cutoff.
func (s *SQLite) DeletePostsPostedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE posted_at < ?`, toMillis(cutoff))
	metrics.ObserveNetworkRequest("sqlite", "posts_delete_expired", "posts", start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MaxPostRetentionDays возвращает максимальный срок хранения среди пользователей.
func (s *SQLite) MaxPostRetentionDays(ctx context.Context) (int, bool, error) {
	var days sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(post_retention_days) FROM user_settings`).Scan(&days); err != nil {
		return 0, false, err
	}
	if !days.Valid {
		return 0, false, nil
	}
	return int(days.Int64), true, nil
}

// SaveUserSetting сохраняет настройку пользователя.
func (s *SQLite) SaveUserSetting(ctx context.Context, setting domain.UserSetting) error {
	var days sql.NullInt64
	if setting.PostRetentionDays != nil {
		days = sql.NullInt64{Int64: int64(*setting.PostRetentionDays), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_settings (user_id, post_retention_days, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET post_retention_days = excluded.post_retention_days, updated_at = excluded.updated_at
`, setting.UserID, days, toMillis(s.now()))
	return err
}
