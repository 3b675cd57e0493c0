package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsletterIngest/internal/domain"
	"NewsletterIngest/internal/extract"
	"NewsletterIngest/internal/metrics"
	"NewsletterIngest/internal/ports"
)

// IngestorDeps wires all driven adapters into the ingestion workflow.
type IngestorDeps struct {
	Source       ports.IssueSource
	Store        ports.ContentStore
	Notifier     ports.Notifier
	Sanitizer    *extract.Sanitizer
	Publications []domain.Publication
	IssueLimit   int
	// PublicationDelay spaces out calls to the source API between
	// publications within one pass.
	PublicationDelay time.Duration
	SegmentOptions   extract.SegmentOptions
	Logger           *slog.Logger
}

// Ingestor drives synchronization passes: fetch, segment, classify,
// slug, and upsert, idempotently per issue.
type Ingestor struct {
	source       ports.IssueSource
	store        ports.ContentStore
	notifier     ports.Notifier
	sanitizer    *extract.Sanitizer
	publications []domain.Publication
	issueLimit   int
	delay        time.Duration
	segOpts      extract.SegmentOptions
	logger       *slog.Logger
}

// NewIngestor constructs the orchestration component.
func NewIngestor(deps IngestorDeps) *Ingestor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = extract.NewSanitizer()
	}
	if deps.IssueLimit <= 0 {
		deps.IssueLimit = 5
	}
	return &Ingestor{
		source:       deps.Source,
		store:        deps.Store,
		notifier:     deps.Notifier,
		sanitizer:    deps.Sanitizer,
		publications: deps.Publications,
		issueLimit:   deps.IssueLimit,
		delay:        deps.PublicationDelay,
		segOpts:      deps.SegmentOptions,
		logger:       deps.Logger,
	}
}

// SyncAll processes every configured publication sequentially with a
// courtesy delay between them. The pass succeeds when at least one
// publication succeeded.
func (g *Ingestor) SyncAll(ctx context.Context) (domain.SyncSummary, error) {
	summary := domain.SyncSummary{}

	for i, pub := range g.publications {
		if i > 0 && g.delay > 0 {
			select {
			case <-time.After(g.delay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}

		result, err := g.SyncOne(ctx, pub.ID)
		if err != nil {
			g.logger.Error("publication sync failed", "publication", pub.ID, "error", err)
			result.Success = false
			result.Error = err.Error()
		}
		summary.Publications = append(summary.Publications, result)
		if result.Success {
			summary.Success = true
		}
	}

	if len(summary.Publications) == 0 {
		return summary, fmt.Errorf("no publications configured")
	}
	if !summary.Success {
		return summary, fmt.Errorf("all %d publications failed", len(summary.Publications))
	}
	return summary, nil
}

// SyncOne runs one synchronization pass for one publication.
func (g *Ingestor) SyncOne(ctx context.Context, publicationID string) (domain.PublicationResult, error) {
	pub, err := g.publication(publicationID)
	if err != nil {
		return domain.PublicationResult{PublicationID: publicationID}, err
	}

	result := domain.PublicationResult{PublicationID: pub.ID, Publication: pub.Name}

	issues, err := g.source.FetchLatest(ctx, pub, g.issueLimit)
	if err != nil {
		metrics.SyncPasses.WithLabelValues(pub.ID, "failed").Inc()
		return result, fmt.Errorf("fetch issues for %s: %w", pub.ID, err)
	}

	for _, issue := range issues {
		created, updated, skipped, failed, msgs := g.processIssue(ctx, pub, issue)
		result.IssuesProcessed++
		result.ArticlesCreated += created
		result.ArticlesUpdated += updated
		result.ArticlesSkipped += skipped
		result.ArticlesFailed += failed
		result.Messages = append(result.Messages, msgs...)
		metrics.IssuesProcessed.WithLabelValues(pub.ID).Inc()

		g.notify(ctx, pub, created)
	}

	result.Success = true
	metrics.SyncPasses.WithLabelValues(pub.ID, "completed").Inc()
	return result, nil
}

// processIssue ingests one issue. Per-article failures are isolated:
// they are logged and counted without aborting sibling articles.
func (g *Ingestor) processIssue(ctx context.Context, pub domain.Publication, issue domain.RawIssue) (created, updated, skipped, failed int, msgs []string) {
	log := g.logger.With("publication", pub.ID, "issue", issue.ExternalID)

	known, err := g.store.FindIssueByExternalID(ctx, issue.ExternalID)
	if err != nil {
		log.Error("issue lookup failed", "error", err)
		failed++
		return
	}

	articles := g.extractArticles(pub, issue)

	for _, article := range articles {
		existing, err := g.store.FindArticleByExternalSourceID(ctx, article.ExternalSourceID)
		if err != nil {
			log.Error("article lookup failed", "source_id", article.ExternalSourceID, "error", err)
			failed++
			metrics.ArticlesUpserted.WithLabelValues(pub.ID, "failed").Inc()
			continue
		}

		if existing != nil && existing.EditorialStatus.Protected() {
			skipped++
			msgs = append(msgs, fmt.Sprintf("skipped, protected: %s (%s)", article.ExternalSourceID, existing.EditorialStatus))
			metrics.ArticlesUpserted.WithLabelValues(pub.ID, "skipped").Inc()
			continue
		}

		if existing != nil {
			// Slugs are stable across re-syncs.
			article.Slug = existing.Slug
		} else {
			slug, err := g.resolveSlug(ctx, article)
			if err != nil {
				log.Error("slug resolution failed", "source_id", article.ExternalSourceID, "error", err)
				failed++
				metrics.ArticlesUpserted.WithLabelValues(pub.ID, "failed").Inc()
				continue
			}
			article.Slug = slug
		}

		if err := g.store.UpsertArticle(ctx, article); err != nil {
			log.Error("article upsert failed", "source_id", article.ExternalSourceID, "error", err)
			failed++
			metrics.ArticlesUpserted.WithLabelValues(pub.ID, "failed").Inc()
			continue
		}

		if existing == nil {
			created++
			metrics.ArticlesUpserted.WithLabelValues(pub.ID, "created").Inc()
		} else {
			updated++
			metrics.ArticlesUpserted.WithLabelValues(pub.ID, "updated").Inc()
		}
	}

	if known == nil {
		if err := g.store.CreateIssue(ctx, issue); err != nil {
			log.Error("issue persist failed", "error", err)
			failed++
		}
	}

	log.Info("issue processed",
		"articles", len(articles), "created", created, "updated", updated,
		"skipped", skipped, "failed", failed)
	return
}

// extractArticles runs the pure pipeline over one issue: sanitize,
// segment, convert, classify. Guaranteed to return at least one
// article; any internal parse trouble degrades through the
// segmentation fallback chain instead of propagating.
func (g *Ingestor) extractArticles(pub domain.Publication, issue domain.RawIssue) []domain.ExtractedArticle {
	opts := g.segOpts
	if opts.NewsletterDomain == "" {
		opts.NewsletterDomain = pub.Domain
	}
	segmenter := extract.NewSegmenter(opts)

	cleaned := g.sanitizer.Clean(issue.BodyHTML)
	items := segmenter.Segment(cleaned)

	articles := make([]domain.ExtractedArticle, 0, len(items))
	for i, item := range items {
		title := item.Title
		if title == "" {
			title = issue.Title
		}

		featured := item.FeaturedImage
		if featured == "" {
			featured = issue.ThumbnailURL
		}

		blocks := extract.ConvertBlocks(item.BodyHTML)

		articles = append(articles, domain.ExtractedArticle{
			ExternalSourceID: domain.ArticleSourceID(issue.ExternalID, i),
			IssueExternalID:  issue.ExternalID,
			SequenceIndex:    i,
			Title:            title,
			Excerpt:          item.Excerpt,
			Category:         extract.Classify(item.Category, title, extract.Text(item.BodyHTML)),
			Blocks:           blocks,
			FeaturedImage:    featured,
			SourceURL:        issue.SourceURL,
			Tags:             issue.Tags,
			NewsletterName:   pub.Name,
		})
	}
	return articles
}

// resolveSlug generates a globally unique slug for a new article.
func (g *Ingestor) resolveSlug(ctx context.Context, article domain.ExtractedArticle) (string, error) {
	base := extract.Slugify(article.Title)
	return extract.UniqueSlug(ctx, base, func(ctx context.Context, slug string) (bool, error) {
		found, err := g.store.FindArticleBySlug(ctx, slug)
		if err != nil {
			return false, err
		}
		// A slug held by the same composite key is not a collision.
		return found != nil && found.ExternalSourceID != article.ExternalSourceID, nil
	})
}

// notify announces one processed issue, zero-created included, so
// consumers see every pass.
func (g *Ingestor) notify(ctx context.Context, pub domain.Publication, created int) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.NotifyIngested(ctx, pub.Name, created); err != nil {
		g.logger.Warn("notification failed", "publication", pub.ID, "error", err)
	}
}

func (g *Ingestor) publication(id string) (domain.Publication, error) {
	for _, pub := range g.publications {
		if pub.ID == id {
			return pub, nil
		}
	}
	return domain.Publication{}, fmt.Errorf("publication %s is not configured", id)
}
