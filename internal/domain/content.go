package domain

import (
	"fmt"
	"time"
)

// IssueStatus mirrors the publishing platform's post lifecycle.
type IssueStatus string

const (
	IssueDraft     IssueStatus = "draft"
	IssueConfirmed IssueStatus = "confirmed"
	IssueSent      IssueStatus = "sent"
	IssueArchived  IssueStatus = "archived"
)

// RawIssue is one newsletter send as returned by the source API.
// Immutable once fetched; it lives only for the duration of a sync pass.
type RawIssue struct {
	ExternalID   string
	Title        string
	Status       IssueStatus
	PublishedAt  time.Time
	BodyHTML     string
	ThumbnailURL string
	SourceURL    string
	Tags         []string
}

// BlockType enumerates the supported content block kinds.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockImage     BlockType = "image"
	BlockQuote     BlockType = "quote"
	BlockList      BlockType = "list"
	BlockDivider   BlockType = "divider"
)

// BlockData carries the type-specific payload of a ContentBlock.
// Unused fields stay zero and are omitted when serialized.
type BlockData struct {
	Text    string   `json:"text,omitempty"`
	Level   int      `json:"level,omitempty"`
	URL     string   `json:"url,omitempty"`
	Alt     string   `json:"alt,omitempty"`
	Caption string   `json:"caption,omitempty"`
	Items   []string `json:"items,omitempty"`
	Style   string   `json:"style,omitempty"`
}

// ContentBlock is an immutable value object forming article bodies.
type ContentBlock struct {
	ID   string    `json:"id"`
	Type BlockType `json:"type"`
	Data BlockData `json:"data"`
}

// NewsItem is an intermediate artifact of segmentation: one candidate
// article cut out of an issue. It drives block conversion and
// classification, then is discarded.
type NewsItem struct {
	Title         string
	Category      string
	BodyHTML      string
	FeaturedImage string
	ExternalLinks []string
	Excerpt       string
	IsSponsored   bool
}

// ExtractedArticle is the unit of pipeline output.
type ExtractedArticle struct {
	ExternalSourceID string
	IssueExternalID  string
	SequenceIndex    int
	Title            string
	Slug             string
	Excerpt          string
	Category         string
	Blocks           []ContentBlock
	FeaturedImage    string
	SourceURL        string
	Tags             []string
	NewsletterName   string
}

// ArticleSourceID builds the composite idempotency key for one logical
// item of an issue. Re-running ingestion on the same issue regenerates
// the same key for the same item.
func ArticleSourceID(issueExternalID string, sequenceIndex int) string {
	return fmt.Sprintf("%s-%d", issueExternalID, sequenceIndex)
}

// EditorialStatus is the downstream workflow state of a stored article.
// The workflow itself lives outside this service; ingestion only needs
// to know which states protect an article from being overwritten.
type EditorialStatus string

const (
	EditorialDraft     EditorialStatus = "draft"
	EditorialInReview  EditorialStatus = "in_review"
	EditorialApproved  EditorialStatus = "approved"
	EditorialScheduled EditorialStatus = "scheduled"
	EditorialPublished EditorialStatus = "published"
)

// Protected reports whether upserts against the article must be skipped.
func (s EditorialStatus) Protected() bool {
	switch s {
	case EditorialInReview, EditorialApproved, EditorialScheduled, EditorialPublished:
		return true
	}
	return false
}

// StoredArticle is an ExtractedArticle as persisted in the content
// store, together with its downstream editorial state.
type StoredArticle struct {
	ExtractedArticle
	EditorialStatus EditorialStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StoredIssue records that an issue was ingested, so later passes can
// resolve the already-known lookup.
type StoredIssue struct {
	RawIssue
	IngestedAt time.Time
}

// Publication describes one configured newsletter to ingest.
type Publication struct {
	ID     string
	Name   string
	Token  string
	Domain string
}
