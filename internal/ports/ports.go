package ports

import (
	"context"

	"NewsletterIngest/internal/domain"
)

// IssueSource pulls published issues from the external platform.
type IssueSource interface {
	FetchLatest(ctx context.Context, pub domain.Publication, limit int) ([]domain.RawIssue, error)
}

// ContentStore persists ingested issues and extracted articles.
// Find methods return nil without error when nothing matches.
type ContentStore interface {
	FindIssueByExternalID(ctx context.Context, externalID string) (*domain.StoredIssue, error)
	CreateIssue(ctx context.Context, issue domain.RawIssue) error
	FindArticleByExternalSourceID(ctx context.Context, sourceID string) (*domain.StoredArticle, error)
	FindArticleBySlug(ctx context.Context, slug string) (*domain.StoredArticle, error)
	FindArticlesByIssue(ctx context.Context, issueExternalID string) ([]domain.StoredArticle, error)

	// UpsertArticle creates or updates by composite source id. Identity
	// and editorial status are never touched on update; the caller must
	// have skipped protected articles already.
	UpsertArticle(ctx context.Context, article domain.ExtractedArticle) error
}

// Notifier announces ingestion results. Fire-and-forget: failures must
// never abort a sync pass.
type Notifier interface {
	NotifyIngested(ctx context.Context, publication string, created int) error
}
