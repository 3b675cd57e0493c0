package storage

import (
	"context"
	"sync"
	"time"

	"NewsletterIngest/internal/domain"
	"NewsletterIngest/internal/ports"
)

// MemoryStore is an in-memory ContentStore used in tests and when no
// database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	issues   map[string]domain.StoredIssue
	articles map[string]domain.StoredArticle // by composite source id
}

var _ ports.ContentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		issues:   map[string]domain.StoredIssue{},
		articles: map[string]domain.StoredArticle{},
	}
}

func (s *MemoryStore) FindIssueByExternalID(_ context.Context, externalID string) (*domain.StoredIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if issue, ok := s.issues[externalID]; ok {
		return &issue, nil
	}
	return nil, nil
}

func (s *MemoryStore) CreateIssue(_ context.Context, issue domain.RawIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.ExternalID]; ok {
		return nil
	}
	s.issues[issue.ExternalID] = domain.StoredIssue{RawIssue: issue, IngestedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) FindArticleByExternalSourceID(_ context.Context, sourceID string) (*domain.StoredArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if article, ok := s.articles[sourceID]; ok {
		return &article, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindArticleBySlug(_ context.Context, slug string) (*domain.StoredArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, article := range s.articles {
		if article.Slug == slug {
			a := article
			return &a, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindArticlesByIssue(_ context.Context, issueExternalID string) ([]domain.StoredArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var articles []domain.StoredArticle
	for _, article := range s.articles {
		if article.IssueExternalID == issueExternalID {
			articles = append(articles, article)
		}
	}
	// Stable order for reproducible fan-out processing.
	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if articles[j].SequenceIndex < articles[i].SequenceIndex {
				articles[i], articles[j] = articles[j], articles[i]
			}
		}
	}
	return articles, nil
}

func (s *MemoryStore) UpsertArticle(_ context.Context, article domain.ExtractedArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.articles[article.ExternalSourceID]; ok {
		existing.ExtractedArticle = article
		existing.UpdatedAt = now
		s.articles[article.ExternalSourceID] = existing
		return nil
	}
	s.articles[article.ExternalSourceID] = domain.StoredArticle{
		ExtractedArticle: article,
		EditorialStatus:  domain.EditorialDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return nil
}

// SetEditorialStatus simulates the downstream workflow acting on an
// article; it exists for tests and the protection invariant.
func (s *MemoryStore) SetEditorialStatus(sourceID string, status domain.EditorialStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[sourceID]
	if !ok {
		return false
	}
	article.EditorialStatus = status
	s.articles[sourceID] = article
	return true
}
