package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы и индексы, если их нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, postgresSchema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "schema", start, err)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close закрывает пул.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

const sourceColumns = `id, name, provider, base_url, config, active, auto_fetch_enabled, status, last_fetched_at, created_at, updated_at`

func scanPGSource(row pgx.Row) (domain.Source, error) {
	var (
		src      domain.Source
		provider string
		raw      []byte
	)
	if err := row.Scan(&src.ID, &src.Name, &provider, &src.BaseURL, &raw, &src.Active, &src.AutoFetchEnabled,
		&src.Status, &src.LastFetchedAt, &src.CreatedAt, &src.UpdatedAt); err != nil {
		return domain.Source{}, err
	}
	applyStoredConfig(&src, provider, raw)
	return src, nil
}

// GetSource возвращает источник по идентификатору.
func (p *Postgres) GetSource(ctx context.Context, id string) (domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	src, err := scanPGSource(p.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id))
	metrics.ObserveNetworkRequest("postgres", "sources_get", "sources", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Source{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return src, err
}

// ListSources возвращает все источники.
func (p *Postgres) ListSources(ctx context.Context) ([]domain.Source, error) {
	return p.listSources(ctx, "sources_list", `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
}

// ListSourcesByProvider возвращает источники провайдера.
func (p *Postgres) ListSourcesByProvider(ctx context.Context, provider domain.ProviderType) ([]domain.Source, error) {
	return p.listSources(ctx, "sources_list_by_provider", `SELECT `+sourceColumns+` FROM sources WHERE provider = $1 ORDER BY id`, string(provider))
}

func (p *Postgres) listSources(ctx context.Context, op, query string, args ...any) ([]domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", op, "sources", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sources []domain.Source
	for rows.Next() {
		src, err := scanPGSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// UpsertSource создаёт источник или обновляет его описание. Статус и last_fetched_at сохраняются.
func (p *Postgres) UpsertSource(ctx context.Context, src domain.Source) (domain.Source, error) {
	src, raw, err := prepareSource(src)
	if err != nil {
		return domain.Source{}, err
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	stored, err := scanPGSource(p.pool.QueryRow(ctx, `
INSERT INTO sources (id, name, provider, base_url, config, active, auto_fetch_enabled, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, provider = EXCLUDED.provider, base_url = EXCLUDED.base_url,
    config = EXCLUDED.config, active = EXCLUDED.active, auto_fetch_enabled = EXCLUDED.auto_fetch_enabled, updated_at = now()
RETURNING `+sourceColumns,
		src.ID, src.Name, string(src.Provider), src.BaseURL, raw, src.Active, src.AutoFetchEnabled, src.Status))
	metrics.ObserveNetworkRequest("postgres", "sources_upsert", "sources", start, err)
	if err != nil {
		return domain.Source{}, fmt.Errorf("upsert source %s: %w", src.ID, err)
	}
	return stored, nil
}

// UpdateSourceStatus записывает статус и, если передано, время последнего успешного прогона.
func (p *Postgres) UpdateSourceStatus(ctx context.Context, id, status string, fetchedAt *time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE sources SET status = $2, last_fetched_at = COALESCE($3, last_fetched_at), updated_at = now()
WHERE id = $1
`, id, status, fetchedAt)
	metrics.ObserveNetworkRequest("postgres", "sources_update_status", "sources", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return nil
}

// UpsertPost вставляет элемент, если пары (source, external_id) ещё нет. Существующая запись
// не изменяется: конфликт уникального индекса означает Skipped.
func (p *Postgres) UpsertPost(ctx context.Context, post domain.Post) (domain.UpsertResult, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	var id int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO posts (source, external_id, title, url, author, summary, tags, posted_at, priority_score, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
ON CONFLICT (source, external_id) DO NOTHING
RETURNING id
`, post.Source, post.ExternalID, post.Title, post.URL, post.Author, post.Summary, tags, post.PostedAt.UTC(),
		post.PriorityScore, string(domain.PostStatusUnread), now).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "posts_upsert", "posts", start, err)
	if err == nil {
		return domain.UpsertResult{ID: id, Created: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.UpsertResult{}, fmt.Errorf("insert post %s/%s: %w", post.Source, post.ExternalID, err)
	}

	start = time.Now()
	err = p.pool.QueryRow(ctx, `SELECT id FROM posts WHERE source = $1 AND external_id = $2`, post.Source, post.ExternalID).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "posts_get_id", "posts", start, err)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("lookup post %s/%s: %w", post.Source, post.ExternalID, err)
	}
	return domain.UpsertResult{ID: id, Created: false}, nil
}

// GetPost возвращает элемент по ключу.
func (p *Postgres) GetPost(ctx context.Context, source, externalID string) (domain.Post, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		post   domain.Post
		status string
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, source, external_id, title, url, author, summary, tags, posted_at, priority_score, status, created_at, updated_at
FROM posts WHERE source = $1 AND external_id = $2
`, source, externalID).Scan(&post.ID, &post.Source, &post.ExternalID, &post.Title, &post.URL, &post.Author, &post.Summary,
		&post.Tags, &post.PostedAt, &post.PriorityScore, &status, &post.CreatedAt, &post.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "posts_get", "posts", start, err)
	if err != nil {
		return domain.Post{}, err
	}
	post.Status = domain.PostStatus(status)
	return post, nil
}

// CountPosts возвращает количество элементов.
func (p *Postgres) CountPosts(ctx context.Context) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var n int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	metrics.ObserveNetworkRequest("postgres", "posts_count", "posts", start, err)
	return n, err
}

// DeletePostsPostedBefore удаляет элементы с posted_at строго раньше cutoff.
func (p *Postgres) DeletePostsPostedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM posts WHERE posted_at < $1`, cutoff.UTC())
	metrics.ObserveNetworkRequest("postgres", "posts_delete_expired", "posts", start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MaxPostRetentionDays возвращает максимальный срок хранения среди пользователей.
func (p *Postgres) MaxPostRetentionDays(ctx context.Context) (int, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var days *int32
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT MAX(post_retention_days) FROM user_settings`).Scan(&days)
	metrics.ObserveNetworkRequest("postgres", "user_settings_max_retention", "user_settings", start, err)
	if err != nil {
		return 0, false, err
	}
	if days == nil {
		return 0, false, nil
	}
	return int(*days), true, nil
}

// SaveUserSetting сохраняет настройку пользователя.
func (p *Postgres) SaveUserSetting(ctx context.Context, setting domain.UserSetting) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO user_settings (user_id, post_retention_days)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET post_retention_days = EXCLUDED.post_retention_days, updated_at = now()
`, setting.UserID, setting.PostRetentionDays)
	metrics.ObserveNetworkRequest("postgres", "user_settings_upsert", "user_settings", start, err)
	return err
}
