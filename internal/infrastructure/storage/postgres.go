package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsletterIngest/internal/domain"
	"NewsletterIngest/internal/ports"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore is the production content store.
type PostgresStore struct {
	db *sql.DB
}

var _ ports.ContentStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB opened with the pq driver.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindIssueByExternalID returns nil when the issue was never ingested.
func (s *PostgresStore) FindIssueByExternalID(ctx context.Context, externalID string) (*domain.StoredIssue, error) {
	query, args, err := builder.
		Select("external_id", "title", "status", "published_at", "source_url", "thumbnail_url", "tags", "ingested_at").
		From("newsletter_issues").
		Where(sq.Eq{"external_id": externalID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build issue query: %w", err)
	}

	var issue domain.StoredIssue
	var tags pq.StringArray
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&issue.ExternalID, &issue.Title, &issue.Status, &issue.PublishedAt,
		&issue.SourceURL, &issue.ThumbnailURL, &tags, &issue.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan issue: %w", err)
	}
	issue.Tags = tags
	return &issue, nil
}

// CreateIssue records an ingested issue. The raw body is not stored;
// only enough to resolve the already-known lookup on later passes.
func (s *PostgresStore) CreateIssue(ctx context.Context, issue domain.RawIssue) error {
	query, args, err := builder.
		Insert("newsletter_issues").
		Columns("external_id", "title", "status", "published_at", "source_url", "thumbnail_url", "tags", "ingested_at").
		Values(issue.ExternalID, issue.Title, issue.Status, issue.PublishedAt,
			issue.SourceURL, issue.ThumbnailURL, pq.StringArray(issue.Tags), time.Now().UTC()).
		Suffix("ON CONFLICT (external_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build issue insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

// FindArticleByExternalSourceID returns nil when the composite key is unknown.
func (s *PostgresStore) FindArticleByExternalSourceID(ctx context.Context, sourceID string) (*domain.StoredArticle, error) {
	return s.findArticle(ctx, sq.Eq{"external_source_id": sourceID})
}

// FindArticleBySlug returns nil when no article holds the slug.
func (s *PostgresStore) FindArticleBySlug(ctx context.Context, slug string) (*domain.StoredArticle, error) {
	return s.findArticle(ctx, sq.Eq{"slug": slug})
}

func (s *PostgresStore) findArticle(ctx context.Context, where sq.Eq) (*domain.StoredArticle, error) {
	query, args, err := builder.
		Select("external_source_id", "issue_external_id", "sequence_index", "title", "slug", "excerpt",
			"category", "blocks", "featured_image", "source_url", "tags", "newsletter_name",
			"editorial_status", "created_at", "updated_at").
		From("articles").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return article, err
}

// FindArticlesByIssue lists articles derived from one issue in
// segmentation order.
func (s *PostgresStore) FindArticlesByIssue(ctx context.Context, issueExternalID string) ([]domain.StoredArticle, error) {
	query, args, err := builder.
		Select("external_source_id", "issue_external_id", "sequence_index", "title", "slug", "excerpt",
			"category", "blocks", "featured_image", "source_url", "tags", "newsletter_name",
			"editorial_status", "created_at", "updated_at").
		From("articles").
		Where(sq.Eq{"issue_external_id": issueExternalID}).
		OrderBy("sequence_index ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.StoredArticle
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// UpsertArticle creates or updates by composite source id. Editorial
// status is owned by the downstream workflow and never written here.
func (s *PostgresStore) UpsertArticle(ctx context.Context, article domain.ExtractedArticle) error {
	blocks, err := json.Marshal(article.Blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}

	now := time.Now().UTC()
	query, args, err := builder.
		Insert("articles").
		Columns("external_source_id", "issue_external_id", "sequence_index", "title", "slug", "excerpt",
			"category", "blocks", "featured_image", "source_url", "tags", "newsletter_name",
			"editorial_status", "created_at", "updated_at").
		Values(article.ExternalSourceID, article.IssueExternalID, article.SequenceIndex,
			article.Title, article.Slug, article.Excerpt, article.Category, blocks,
			article.FeaturedImage, article.SourceURL, pq.StringArray(article.Tags),
			article.NewsletterName, domain.EditorialDraft, now, now).
		Suffix(`ON CONFLICT (external_source_id) DO UPDATE SET
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			excerpt = EXCLUDED.excerpt,
			category = EXCLUDED.category,
			blocks = EXCLUDED.blocks,
			featured_image = EXCLUDED.featured_image,
			source_url = EXCLUDED.source_url,
			tags = EXCLUDED.tags,
			newsletter_name = EXCLUDED.newsletter_name,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build article upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert article %s: %w", article.ExternalSourceID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*domain.StoredArticle, error) {
	var article domain.StoredArticle
	var blocks []byte
	var tags pq.StringArray

	err := row.Scan(&article.ExternalSourceID, &article.IssueExternalID, &article.SequenceIndex,
		&article.Title, &article.Slug, &article.Excerpt, &article.Category, &blocks,
		&article.FeaturedImage, &article.SourceURL, &tags, &article.NewsletterName,
		&article.EditorialStatus, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return nil, err
	}

	article.Tags = tags
	if len(blocks) > 0 {
		if err := json.Unmarshal(blocks, &article.Blocks); err != nil {
			return nil, fmt.Errorf("decode blocks for %s: %w", article.ExternalSourceID, err)
		}
	}
	return &article, nil
}
